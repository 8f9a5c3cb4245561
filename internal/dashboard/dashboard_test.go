package dashboard

import (
	"testing"
	"time"

	"github.com/erazemk/ecopickup/internal/model"
)

func ptr(v int64) *int64 { return &v }

func sample() []model.Pickup {
	return []model.Pickup{
		{ID: 1, UserID: 10, Status: model.StatusPending},
		{ID: 2, UserID: 10, Status: model.StatusAccepted, AgentID: ptr(100)},
		{ID: 3, UserID: 11, Status: model.StatusCompleted, AgentID: ptr(100)},
		{ID: 4, UserID: 11, Status: model.StatusOnTheWay, AgentID: ptr(200)},
		{ID: 5, UserID: 12, Status: model.StatusPending},
	}
}

func ids(pickups []model.Pickup) []int64 {
	out := []int64{}
	for _, p := range pickups {
		out = append(out, p.ID)
	}
	return out
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoleViews(t *testing.T) {
	pickups := sample()

	cases := []struct {
		name string
		got  []model.Pickup
		want []int64
	}{
		{"requester 10", Requester(pickups, 10), []int64{1, 2}},
		{"requester 99", Requester(pickups, 99), []int64{}},
		{"pending pool", AgentPending(pickups), []int64{1, 5}},
		{"agent 100", AgentMine(pickups, 100), []int64{2, 3}},
		{"agent 200", AgentMine(pickups, 200), []int64{4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(tc.got); !equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestViewsDoNotMutateInput(t *testing.T) {
	pickups := sample()
	mine := AgentMine(pickups, 100)
	mine[0].Status = "changed"
	if pickups[1].Status != model.StatusAccepted {
		t.Error("projection shares storage with the cache")
	}
}

func TestGroupByStatus(t *testing.T) {
	groups := GroupByStatus(sample())
	if len(groups) != len(model.Statuses) {
		t.Fatalf("expected %d groups, got %d", len(model.Statuses), len(groups))
	}
	want := map[string]int{
		model.StatusPending:   2,
		model.StatusAccepted:  1,
		model.StatusOnTheWay:  1,
		model.StatusPicked:    0,
		model.StatusCompleted: 1,
	}
	for i, g := range groups {
		if g.Status != model.Statuses[i] {
			t.Errorf("group %d: expected %s, got %s", i, model.Statuses[i], g.Status)
		}
		if len(g.Pickups) != want[g.Status] {
			t.Errorf("%s: expected %d, got %d", g.Status, want[g.Status], len(g.Pickups))
		}
	}
}

func TestAdmin(t *testing.T) {
	v := Admin(sample(), &model.Analytics{TotalPickups: 8, CompletedPickups: 2, TotalUsers: 3})
	if v.CompletionRate != 0.25 {
		t.Errorf("expected 0.25, got %v", v.CompletionRate)
	}
	if v.Analytics.TotalUsers != 3 || len(v.Pickups) != 5 {
		t.Errorf("unexpected view %+v", v)
	}

	empty := Admin(nil, nil)
	if empty.CompletionRate != 0 || len(empty.Pickups) != 0 {
		t.Errorf("unexpected empty view %+v", empty)
	}
}

func TestTimeline(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	accepted := created.Add(time.Hour)
	onTheWay := accepted.Add(time.Hour)
	p := model.Pickup{
		Status:     model.StatusOnTheWay,
		CreatedAt:  created,
		AcceptedAt: &accepted,
		OnTheWayAt: &onTheWay,
	}

	steps := Timeline(p)
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
	for i, s := range steps {
		wantReached := i <= 2
		if s.Reached != wantReached {
			t.Errorf("%s: reached=%v", s.Status, s.Reached)
		}
		if s.Current != (i == 2) {
			t.Errorf("%s: current=%v", s.Status, s.Current)
		}
		if wantReached && s.At == nil {
			t.Errorf("%s: missing time", s.Status)
		}
		if !wantReached && s.At != nil {
			t.Errorf("%s: unexpected time", s.Status)
		}
	}
	if !steps[1].At.Equal(accepted) {
		t.Errorf("accepted at %v, want %v", steps[1].At, accepted)
	}
}
