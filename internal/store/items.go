package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

// ItemImage is one stored item photo.
type ItemImage struct {
	Data []byte
	MIME string
}

// CreateItem creates an item, its images, and its pending pickup in a
// single transaction. Every item has exactly one pickup.
func CreateItem(ctx context.Context, db *sql.DB, item model.Item, images []ItemImage) (*model.Item, *model.Pickup, error) {
	if !model.ValidAction(item.Action) {
		return nil, nil, fmt.Errorf("invalid action %q", item.Action)
	}
	if len(images) > model.MaxItemImages {
		return nil, nil, fmt.Errorf("at most %d images allowed", model.MaxItemImages)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (user_id, category_id, title, description, action) VALUES (?, ?, ?, ?, ?)`,
		item.UserID, item.CategoryID, item.Title, item.Description, item.Action,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating item: %w", err)
	}
	itemID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("getting item id: %w", err)
	}

	for i, img := range images {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_images (item_id, position, data, mime) VALUES (?, ?, ?, ?)`,
			itemID, i, img.Data, img.MIME,
		); err != nil {
			return nil, nil, fmt.Errorf("storing image %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC()
	result, err = tx.ExecContext(ctx,
		`INSERT INTO pickups (item_id, user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		itemID, item.UserID, model.StatusPending, now, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating pickup: %w", err)
	}
	pickupID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("getting pickup id: %w", err)
	}

	if err := insertHistory(ctx, tx, pickupID, model.StatusPending, item.UserID, now); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing item: %w", err)
	}

	created, err := GetItem(ctx, db, itemID)
	if err != nil {
		return nil, nil, err
	}
	pickup, err := GetPickup(ctx, db, pickupID)
	if err != nil {
		return nil, nil, err
	}
	return created, pickup, nil
}

const itemSelect = `SELECT i.id, i.user_id, i.category_id, i.title, i.description, i.action, i.created_at,
	        c.name, (SELECT COUNT(*) FROM item_images im WHERE im.item_id = i.id)
	 FROM items i
	 JOIN categories c ON c.id = i.category_id`

func scanItem(row interface{ Scan(...any) error }, item *model.Item) error {
	return row.Scan(&item.ID, &item.UserID, &item.CategoryID, &item.Title, &item.Description,
		&item.Action, &item.CreatedAt, &item.CategoryName, &item.ImageCount)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	err := scanItem(db.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItemsByUser returns the items a user submitted, newest first.
func ListItemsByUser(ctx context.Context, db *sql.DB, userID int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, itemSelect+` WHERE i.user_id = ? ORDER BY i.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItemImage returns one image of an item and its MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, itemID int64, position int) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM item_images WHERE item_id = ? AND position = ?`, itemID, position,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return data, mime, nil
}
