package view

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/query"
	"github.com/huykn/teamup-client/store"
)

func TestMembershipOf(t *testing.T) {
	g := api.Group{
		LeaderID: "lead",
		Members: []api.GroupMember{
			{UserID: "lead", Role: api.MemberLeader},
			{UserID: "m1", Role: api.MemberMember},
			{UserID: "m2", Role: api.MemberLeader},
		},
	}
	assert.Equal(t, MembershipLeader, MembershipOf(g, "lead"))
	assert.Equal(t, MembershipMember, MembershipOf(g, "m1"))
	assert.Equal(t, MembershipLeader, MembershipOf(g, "m2"))
	assert.Equal(t, MembershipNone, MembershipOf(g, "stranger"))
	assert.Equal(t, MembershipNone, MembershipOf(g, ""))
}

func TestPendingRequests(t *testing.T) {
	reqs := []api.JoinRequest{
		{RequestID: "1", GroupID: "42", Status: api.RequestPending},
		{RequestID: "2", GroupID: "43", Status: api.RequestRejected},
		{RequestID: "3", GroupID: "44", Status: api.RequestPending},
	}
	pending := PendingRequests(reqs)
	require.Len(t, pending, 2)
	assert.Equal(t, "1", pending[0].RequestID)
	assert.Equal(t, "3", pending[1].RequestID)

	assert.True(t, HasPendingRequest(reqs, "42"))
	assert.False(t, HasPendingRequest(reqs, "43"))
	assert.False(t, HasPendingRequest(nil, "42"))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name      string
		page      int
		size      int
		wantPage  int
		wantItems []int
		wantPages int
	}{
		{"first page", 1, 3, 1, []int{1, 2, 3}, 3},
		{"last partial page", 3, 3, 3, []int{7}, 3},
		{"page past the end clamps", 9, 3, 3, []int{7}, 3},
		{"page below one clamps", 0, 3, 1, []int{1, 2, 3}, 3},
		{"default size", 1, 0, 1, items, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(items, tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantItems, p.Items)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, 7, p.Total)
		})
	}

	empty := Paginate([]int(nil), 5, 3)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Empty(t, empty.Items)
	assert.False(t, empty.HasNext())
	assert.False(t, empty.HasPrev())
}

func TestHotPosts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := []api.Post{
		{PostID: "old", CreatedAt: now.Add(-48 * time.Hour)},
		{PostID: "small", CreatedAt: now, Group: &api.Group{MemberCount: 2}},
		{PostID: "big", CreatedAt: now, Group: &api.Group{MemberCount: 4}},
		{PostID: "recent", CreatedAt: now.Add(-time.Hour)},
	}

	p := HotPosts(posts, 1, 3)
	ids := make([]string, len(p.Items))
	for i, post := range p.Items {
		ids[i] = post.PostID
	}
	assert.Equal(t, []string{"big", "small", "recent"}, ids)
	assert.True(t, p.HasNext())
	assert.Equal(t, "old", posts[0].PostID, "input order is preserved")
}

func TestJoinRequestBadgeAndTabs(t *testing.T) {
	assert.Equal(t, "warning", JoinRequestBadge(api.RequestPending).Tone)
	assert.Equal(t, "Approved", JoinRequestBadge(api.RequestApproved).Label)
	assert.Equal(t, Badge{Label: "ARCHIVED", Tone: "neutral"}, JoinRequestBadge("ARCHIVED"))

	assert.Contains(t, GroupTabs(MembershipLeader), TabRequests)
	assert.NotContains(t, GroupTabs(MembershipMember), TabRequests)
	assert.Equal(t, []Tab{TabOverview, TabPosts}, GroupTabs(MembershipNone))
}

type staticProfile struct{ user *api.User }

func (s staticProfile) State() store.Slice[*api.User] {
	if s.user == nil {
		return store.Slice[*api.User]{Status: cache.StatusIdle}
	}
	return store.Slice[*api.User]{Status: cache.StatusSuccess, Data: s.user}
}

func TestPendingRequestView(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/join-requests/find-by-student/u1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []api.JoinRequest{
			{RequestID: "1", GroupID: "42", Status: api.RequestPending},
			{RequestID: "2", GroupID: "43", Status: api.RequestApproved},
		}})
	}))
	defer srv.Close()

	client, err := httpclient.New(httpclient.Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	qc, err := cache.New(cache.DefaultOptions())
	require.NoError(t, err)
	defer qc.Close()
	a := api.New(query.NewFactory(qc, client, nil))
	ctx := context.Background()

	signedOut := NewPendingRequestView(staticProfile{}, a)
	assert.False(t, signedOut.Query().Enabled())
	pending, err := signedOut.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Zero(t, calls.Load())

	v := NewPendingRequestView(staticProfile{user: &api.User{UserID: "u1"}}, a)
	ok, err := v.HasPending(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = v.HasPending(ctx, "43")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}
