package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/query"
)

// backend is a fake platform API that counts requests per "METHOD path".
type backend struct {
	mu     sync.Mutex
	counts map[string]int
	bodies map[string][]byte
	routes map[string]func(w http.ResponseWriter, r *http.Request, n int)
}

func newBackend() *backend {
	return &backend{
		counts: make(map[string]int),
		bodies: make(map[string][]byte),
		routes: make(map[string]func(w http.ResponseWriter, r *http.Request, n int)),
	}
}

func (b *backend) handle(route string, fn func(w http.ResponseWriter, r *http.Request, n int)) {
	b.routes[route] = fn
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[route]
}

func (b *backend) body(route string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[route]
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	data, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.counts[route]++
	n := b.counts[route]
	b.bodies[route] = data
	fn := b.routes[route]
	b.mu.Unlock()

	if fn == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
		return
	}
	fn(w, r, n)
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func newTestAPI(t *testing.T, b *backend, httpClient *http.Client) (*API, *cache.QueryCache) {
	t.Helper()

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client, err := httpclient.New(httpclient.Config{BaseURL: srv.URL, HTTPClient: httpClient}, nil)
	require.NoError(t, err)

	opts := cache.DefaultOptions()
	opts.Defaults.Retry = 0
	qc, err := cache.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = qc.Close() })

	return New(query.NewFactory(qc, client, nil)), qc
}

func TestKeyFamiliesAreIsolated(t *testing.T) {
	a, _ := newTestAPI(t, newBackend(), nil)

	keys := []cache.Key{
		a.Users.Use().Key(),
		a.User.Use("1").Key(),
		a.SearchUsers.Use(map[string]any{"name": "an"}).Key(),
		a.Profile.Use().Key(),
		a.Groups.Use(nil).Key(),
		a.Group.Use("1").Key(),
		a.GroupsByCourse.Use("1").Key(),
		a.JoinRequests.Use().Key(),
		a.JoinRequestsByStudent.Use("1").Key(),
	}
	for i := range keys {
		for j := range keys {
			if i == j {
				continue
			}
			assert.False(t, keys[i].HasPrefix(keys[j]), "%s must not be under %s", keys[i], keys[j])
		}
	}
}

func TestUserByIDDisabledWithoutID(t *testing.T) {
	b := newBackend()
	a, _ := newTestAPI(t, b, nil)

	q := a.User.Use("")
	assert.False(t, q.Enabled())

	u, err := q.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, User{}, u)
	assert.True(t, q.State().IsIdle())
	assert.Zero(t, b.count("GET /users/"))
	assert.Zero(t, b.count("GET /users"))
}

func TestSearchUsersGatedOnParams(t *testing.T) {
	b := newBackend()
	var (
		mu       sync.Mutex
		gotQuery string
	)
	b.handle("GET /users/search", func(w http.ResponseWriter, r *http.Request, _ int) {
		mu.Lock()
		gotQuery = r.URL.RawQuery
		mu.Unlock()
		writeData(w, []User{{UserID: "1", FullName: "An Nguyen"}})
	})
	a, _ := newTestAPI(t, b, nil)
	ctx := context.Background()

	empty := a.SearchUsers.Use(map[string]any{"name": ""})
	assert.False(t, empty.Enabled())
	_, err := empty.Fetch(ctx)
	require.NoError(t, err)
	assert.Zero(t, b.count("GET /users/search"))

	users, err := a.SearchUsers.Use(map[string]any{"name": "an", "majorId": nil}).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	mu.Lock()
	assert.Equal(t, "name=an", gotQuery)
	mu.Unlock()
	assert.Equal(t, 1, b.count("GET /users/search"))
}

func TestKickMemberInvalidatesEveryAffectedFamily(t *testing.T) {
	b := newBackend()
	b.handle("PUT /groups/42/kick/7", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, Group{GroupID: "42", MemberCount: 2})
	})
	a, qc := newTestAPI(t, b, nil)

	affected := []cache.Key{
		{KeyUser, "7"},
		{KeyGroups},
		{KeyGroups, map[string]any{"courseId": "c1"}},
		{KeyGroupsByCourse, "c1"},
		{KeyGroup, "42"},
		{KeyJoinRequests},
		{KeyJoinRequestsByStudent, "7"},
	}
	untouched := []cache.Key{
		{KeyGroup, "43"},
		{KeyUser, "8"},
		{KeyJoinRequestsByStudent, "8"},
		{KeyPosts},
		{KeyProfile},
	}
	for _, k := range append(append([]cache.Key{}, affected...), untouched...) {
		qc.SetData(k, "seed")
	}

	_, err := a.KickMember("42").Mutate(context.Background(), "7")
	require.NoError(t, err)

	for _, k := range affected {
		e, ok := qc.Peek(k)
		require.True(t, ok, k.String())
		assert.True(t, e.Stale, "%s should be stale", k)
	}
	for _, k := range untouched {
		e, ok := qc.Peek(k)
		require.True(t, ok, k.String())
		assert.False(t, e.Stale, "%s should stay fresh", k)
	}
}

func TestGroupWritesRefetchGroupDetail(t *testing.T) {
	b := newBackend()
	b.handle("GET /groups/42", func(w http.ResponseWriter, _ *http.Request, n int) {
		writeData(w, Group{GroupID: "42", MemberCount: n})
	})
	b.handle("PUT /groups/42", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, Group{GroupID: "42", Name: "Renamed"})
	})
	b.handle("DELETE /groups/42", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, Group{GroupID: "42"})
	})
	a, _ := newTestAPI(t, b, nil)
	ctx := context.Background()

	detail := a.Group.Use("42")
	g, err := detail.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, g.MemberCount)
	_, err = detail.Fetch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, b.count("GET /groups/42"), "fresh detail is served from cache")

	_, err = a.UpdateGroup.Use("").Mutate(ctx, query.UpdateInput[UpdateGroupInput]{
		ID:   "42",
		Data: UpdateGroupInput{Name: "Renamed"},
	})
	require.NoError(t, err)
	assert.True(t, detail.State().Stale)
	g, err = detail.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, g.MemberCount)
	assert.Equal(t, 2, b.count("GET /groups/42"))

	_, err = a.DeleteGroup.Use("").Mutate(ctx, "42")
	require.NoError(t, err)
	assert.True(t, detail.State().Stale)
	_, err = detail.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, b.count("GET /groups/42"))
}

// TestWriteHooksInvalidateEveryReadFamily runs each write hook and checks
// that every cached view showing the written entity is marked stale while
// an unrelated entry stays fresh.
func TestWriteHooksInvalidateEveryReadFamily(t *testing.T) {
	type testCase struct {
		name  string
		route string
		run   func(ctx context.Context, a *API) error
		stale []cache.Key
		fresh []cache.Key
	}

	form := func() *httpclient.Multipart {
		return &httpclient.Multipart{Files: []httpclient.File{{Field: "file", Name: "me.png", Content: strings.NewReader("png")}}}
	}
	byCourse := map[string]any{"courseId": "c1"}

	tests := []testCase{
		{
			name:  "update user",
			route: "PUT /users/7",
			run: func(ctx context.Context, a *API) error {
				_, err := a.UpdateUser.Use("").Mutate(ctx, query.UpdateInput[ProfilePatch]{ID: "7"})
				return err
			},
			stale: []cache.Key{
				{KeyUsers}, {KeyUser, "7"}, {KeyUsersSearch, map[string]any{"name": "an"}}, {KeyProfile},
				{KeyGroups}, {KeyGroup, "42"}, {KeyGroupsByCourse, "c1"},
				{KeyPosts}, {KeyPost, "p1"}, {KeyUserPosts, byCourse},
				{KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"},
			},
			fresh: []cache.Key{{KeyCourses}, {KeyMajors}},
		},
		{
			name:  "delete user",
			route: "DELETE /users/7",
			run: func(ctx context.Context, a *API) error {
				_, err := a.DeleteUser.Use("").Mutate(ctx, "7")
				return err
			},
			stale: []cache.Key{
				{KeyUsers}, {KeyUser, "7"}, {KeyUsersSearch, map[string]any{"name": "an"}},
				{KeyGroup, "42"}, {KeyPosts}, {KeyJoinRequestsByStudent, "7"},
			},
			fresh: []cache.Key{{KeyCourses}},
		},
		{
			name:  "import users",
			route: "POST /users/import",
			run: func(ctx context.Context, a *API) error {
				_, err := a.ImportUsers.Use("").Mutate(ctx, form())
				return err
			},
			stale: []cache.Key{{KeyUsers}, {KeyUsersSearch, map[string]any{"name": "an"}}},
			fresh: []cache.Key{{KeyUser, "7"}, {KeyGroups}},
		},
		{
			name:  "upload avatar",
			route: "POST /users/avatar",
			run: func(ctx context.Context, a *API) error {
				_, err := a.UploadAvatar.Use("").Mutate(ctx, form())
				return err
			},
			stale: []cache.Key{
				{KeyProfile}, {KeyUsers}, {KeyUser, "7"}, {KeyUsersSearch, map[string]any{"name": "an"}},
				{KeyGroup, "42"}, {KeyPosts}, {KeyPost, "p1"}, {KeyUserPosts, byCourse},
			},
			fresh: []cache.Key{{KeyCourses}, {KeyJoinRequests}},
		},
		{
			name:  "create group",
			route: "POST /groups",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateGroup.Use("").Mutate(ctx, CreateGroupInput{Name: "Team", CourseID: "c1"})
				return err
			},
			stale: []cache.Key{{KeyGroups}, {KeyGroups, byCourse}, {KeyGroupsByCourse, "c1"}, {KeyProfile}},
			fresh: []cache.Key{{KeyGroup, "42"}, {KeyPosts}},
		},
		{
			name:  "update group",
			route: "PUT /groups/42",
			run: func(ctx context.Context, a *API) error {
				_, err := a.UpdateGroup.Use("").Mutate(ctx, query.UpdateInput[UpdateGroupInput]{ID: "42"})
				return err
			},
			stale: []cache.Key{
				{KeyGroups}, {KeyGroup, "42"}, {KeyGroupsByCourse, "c1"},
				{KeyPosts}, {KeyPost, "p1"}, {KeyGroupPosts, byCourse},
				{KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"},
			},
			fresh: []cache.Key{{KeyGroup, "43"}, {KeyUser, "7"}, {KeyProfile}},
		},
		{
			name:  "delete group",
			route: "DELETE /groups/42",
			run: func(ctx context.Context, a *API) error {
				_, err := a.DeleteGroup.Use("").Mutate(ctx, "42")
				return err
			},
			stale: []cache.Key{
				{KeyGroups}, {KeyGroup, "42"}, {KeyGroupsByCourse, "c1"},
				{KeyPosts}, {KeyGroupPosts, byCourse}, {KeyJoinRequests},
				{KeyProfile}, {KeyUser, "7"},
			},
			fresh: []cache.Key{{KeyGroup, "43"}, {KeyCourses}},
		},
		{
			name:  "create group post",
			route: "POST /posts/group-post",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateGroupPost.Use("").Mutate(ctx, CreatePostInput{Title: "Need a designer", GroupID: "42"})
				return err
			},
			stale: []cache.Key{{KeyGroupPosts, byCourse}, {KeyPosts}},
			fresh: []cache.Key{{KeyUserPosts, byCourse}, {KeyPost, "p1"}},
		},
		{
			name:  "create user post",
			route: "POST /posts/user-post",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateUserPost.Use("").Mutate(ctx, CreatePostInput{Title: "Looking for a team"})
				return err
			},
			stale: []cache.Key{{KeyUserPosts, byCourse}, {KeyPosts}},
			fresh: []cache.Key{{KeyGroupPosts, byCourse}, {KeyPost, "p1"}},
		},
		{
			name:  "update post",
			route: "PUT /posts/p1",
			run: func(ctx context.Context, a *API) error {
				_, err := a.UpdatePost.Use("").Mutate(ctx, query.UpdateInput[CreatePostInput]{ID: "p1"})
				return err
			},
			stale: []cache.Key{{KeyPosts}, {KeyPost, "p1"}, {KeyGroupPosts, byCourse}, {KeyUserPosts, byCourse}},
			fresh: []cache.Key{{KeyPost, "p2"}, {KeyGroups}},
		},
		{
			name:  "delete post",
			route: "DELETE /posts/p1",
			run: func(ctx context.Context, a *API) error {
				_, err := a.DeletePost.Use("").Mutate(ctx, "p1")
				return err
			},
			stale: []cache.Key{{KeyPosts}, {KeyPost, "p1"}, {KeyGroupPosts, byCourse}, {KeyUserPosts, byCourse}},
			fresh: []cache.Key{{KeyPost, "p2"}, {KeyGroups}},
		},
		{
			name:  "create join request",
			route: "POST /join-requests",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateJoinRequest.Use("").Mutate(ctx, CreateJoinRequestInput{GroupID: "42"})
				return err
			},
			stale: []cache.Key{{KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"}},
			fresh: []cache.Key{{KeyGroups}, {KeyGroup, "42"}},
		},
		{
			name:  "delete join request",
			route: "DELETE /join-requests/r1",
			run: func(ctx context.Context, a *API) error {
				_, err := a.DeleteJoinRequest.Use("").Mutate(ctx, "r1")
				return err
			},
			stale: []cache.Key{{KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"}},
			fresh: []cache.Key{{KeyGroups}},
		},
		{
			name:  "create course",
			route: "POST /courses",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateCourse.Use("").Mutate(ctx, CourseInput{Code: "CS101"})
				return err
			},
			stale: []cache.Key{{KeyCourses}, {KeyCourses, "c1"}},
			fresh: []cache.Key{{KeySemesters}},
		},
		{
			name:  "update course",
			route: "PUT /courses/c1",
			run: func(ctx context.Context, a *API) error {
				_, err := a.UpdateCourse.Use("").Mutate(ctx, query.UpdateInput[CourseInput]{ID: "c1"})
				return err
			},
			stale: []cache.Key{{KeyCourses}, {KeyCourses, "c1"}, {KeyGroups}, {KeyGroup, "42"}, {KeyGroupsByCourse, "c1"}},
			fresh: []cache.Key{{KeySemesters}, {KeyPosts}},
		},
		{
			name:  "delete course",
			route: "DELETE /courses/c1",
			run: func(ctx context.Context, a *API) error {
				_, err := a.DeleteCourse.Use("").Mutate(ctx, "c1")
				return err
			},
			stale: []cache.Key{{KeyCourses}, {KeyCourses, "c1"}, {KeyGroups}, {KeyGroupsByCourse, "c1"}},
			fresh: []cache.Key{{KeyLecturers}},
		},
		{
			name:  "create semester",
			route: "POST /semesters",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateSemester.Use("").Mutate(ctx, SemesterInput{Name: "Fall"})
				return err
			},
			stale: []cache.Key{{KeySemesters}},
			fresh: []cache.Key{{KeyCourses}},
		},
		{
			name:  "create lecturer",
			route: "POST /lecturers",
			run: func(ctx context.Context, a *API) error {
				_, err := a.CreateLecturer.Use("").Mutate(ctx, LecturerInput{FullName: "Dr. Tran"})
				return err
			},
			stale: []cache.Key{{KeyLecturers}},
			fresh: []cache.Key{{KeyCourses}},
		},
		{
			name:  "leave group",
			route: "PUT /groups/leave",
			run: func(ctx context.Context, a *API) error {
				_, err := a.LeaveGroup().Mutate(ctx, LeaveGroupInput{GroupID: "42"})
				return err
			},
			stale: []cache.Key{
				{KeyGroup, "42"}, {KeyGroups}, {KeyGroupsByCourse, "c1"},
				{KeyProfile}, {KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"},
			},
			fresh: []cache.Key{{KeyGroup, "43"}, {KeyPosts}},
		},
		{
			name:  "transfer leader",
			route: "PUT /groups/42/transfer-leader",
			run: func(ctx context.Context, a *API) error {
				_, err := a.TransferLeader("42").Mutate(ctx, TransferLeaderInput{NewLeaderID: "7"})
				return err
			},
			stale: []cache.Key{{KeyGroup, "42"}, {KeyGroups}, {KeyGroupsByCourse, "c1"}, {KeyUser, "7"}, {KeyProfile}},
			fresh: []cache.Key{{KeyGroup, "43"}, {KeyUser, "8"}},
		},
		{
			name:  "add member",
			route: "POST /groups/42/add-member/7",
			run: func(ctx context.Context, a *API) error {
				_, err := a.AddMember("42").Mutate(ctx, "7")
				return err
			},
			stale: []cache.Key{
				{KeyGroup, "42"}, {KeyGroups}, {KeyGroupsByCourse, "c1"},
				{KeyUser, "7"}, {KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"},
			},
			fresh: []cache.Key{{KeyGroup, "43"}, {KeyUser, "8"}},
		},
		{
			name:  "handle join request",
			route: "PUT /join-requests/handle-request/r1",
			run: func(ctx context.Context, a *API) error {
				_, err := a.HandleJoinRequest().Mutate(ctx, HandleJoinRequestInput{
					RequestID: "r1", GroupID: "42", StudentID: "7", Action: ActionAccept,
				})
				return err
			},
			stale: []cache.Key{
				{KeyJoinRequests}, {KeyJoinRequestsByStudent, "7"}, {KeyGroups},
				{KeyGroupsByCourse, "c1"}, {KeyGroup, "42"}, {KeyUser, "7"},
			},
			fresh: []cache.Key{{KeyGroup, "43"}, {KeyUser, "8"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend()
			b.handle(tt.route, func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeData(w, map[string]any{})
			})
			a, qc := newTestAPI(t, b, nil)
			for _, k := range append(append([]cache.Key{}, tt.stale...), tt.fresh...) {
				qc.SetData(k, "seed")
			}

			require.NoError(t, tt.run(context.Background(), a))
			require.Equal(t, 1, b.count(tt.route))

			for _, k := range tt.stale {
				e, ok := qc.Peek(k)
				require.True(t, ok, k.String())
				assert.True(t, e.Stale, "%s should be stale", k)
			}
			for _, k := range tt.fresh {
				e, ok := qc.Peek(k)
				require.True(t, ok, k.String())
				assert.False(t, e.Stale, "%s should stay fresh", k)
			}
		})
	}
}

func TestFailedMutationInvalidatesNothing(t *testing.T) {
	b := newBackend()
	b.handle("PUT /groups/42/kick/7", func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"only the leader can kick"}`))
	})
	a, qc := newTestAPI(t, b, nil)
	qc.SetData(cache.Key{KeyGroup, "42"}, "seed")

	m := a.KickMember("42")
	_, err := m.Mutate(context.Background(), "7")
	require.Error(t, err)
	assert.True(t, httpclient.IsForbidden(err))
	assert.Equal(t, "only the leader can kick", httpclient.Message(err))
	assert.True(t, m.State().IsError())

	e, ok := qc.Peek(cache.Key{KeyGroup, "42"})
	require.True(t, ok)
	assert.False(t, e.Stale)
}

func TestLeaveGroupRefetchesObservedGroup(t *testing.T) {
	b := newBackend()
	b.handle("GET /groups/42", func(w http.ResponseWriter, _ *http.Request, n int) {
		count := 3
		if n > 1 {
			count = 2
		}
		writeData(w, Group{GroupID: "42", MemberCount: count})
	})
	b.handle("GET /groups", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, []Group{{GroupID: "42"}})
	})
	b.handle("PUT /groups/leave", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, Group{GroupID: "42"})
	})
	a, _ := newTestAPI(t, b, nil)
	ctx := context.Background()

	detail := a.Group.Use("42")
	list := a.Groups.Use(nil)
	stopDetail := detail.Observe(nil)
	defer stopDetail()
	stopList := list.Observe(nil)
	defer stopList()

	g, err := detail.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, g.MemberCount)
	_, err = list.Fetch(ctx)
	require.NoError(t, err)

	_, err = a.LeaveGroup().Mutate(ctx, LeaveGroupInput{GroupID: "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"groupId":"42"}`, string(b.body("PUT /groups/leave")))

	require.Eventually(t, func() bool {
		s := detail.State()
		return s.IsSuccess() && !s.Stale && s.Data.MemberCount == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return b.count("GET /groups") == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, b.count("GET /groups/42"))
}

type deadlineRecorder struct {
	mu        sync.Mutex
	remaining time.Duration
}

func (d *deadlineRecorder) RoundTrip(r *http.Request) (*http.Response, error) {
	if dl, ok := r.Context().Deadline(); ok {
		d.mu.Lock()
		d.remaining = time.Until(dl)
		d.mu.Unlock()
	}
	return http.DefaultTransport.RoundTrip(r)
}

func TestHandleJoinRequestUsesLongTimeout(t *testing.T) {
	b := newBackend()
	b.handle("PUT /join-requests/handle-request/r1", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, JoinRequest{RequestID: "r1", Status: RequestApproved})
	})
	rec := &deadlineRecorder{}
	a, qc := newTestAPI(t, b, &http.Client{Transport: rec})
	qc.SetData(cache.Key{KeyJoinRequests}, "seed")
	qc.SetData(cache.Key{KeyUser, "s1"}, "seed")

	out, err := a.HandleJoinRequest().Mutate(context.Background(), HandleJoinRequestInput{
		RequestID: "r1",
		GroupID:   "42",
		StudentID: "s1",
		Action:    ActionAccept,
	})
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, out.Status)
	assert.JSONEq(t, `{"action":"ACCEPT"}`, string(b.body("PUT /join-requests/handle-request/r1")))

	rec.mu.Lock()
	remaining := rec.remaining
	rec.mu.Unlock()
	assert.Greater(t, remaining, httpclient.DefaultTimeout)
	assert.LessOrEqual(t, remaining, HandleJoinRequestTimeout)

	for _, k := range []cache.Key{{KeyJoinRequests}, {KeyUser, "s1"}} {
		e, ok := qc.Peek(k)
		require.True(t, ok)
		assert.True(t, e.Stale, k.String())
	}
}

func TestDomainMutationsRequireIDs(t *testing.T) {
	a, _ := newTestAPI(t, newBackend(), nil)
	ctx := context.Background()

	_, err := a.KickMember("").Mutate(ctx, "7")
	assert.ErrorIs(t, err, query.ErrMissingID)
	_, err = a.LeaveGroup().Mutate(ctx, LeaveGroupInput{})
	assert.ErrorIs(t, err, query.ErrMissingID)
	_, err = a.HandleJoinRequest().Mutate(ctx, HandleJoinRequestInput{})
	assert.ErrorIs(t, err, query.ErrMissingID)
}

func TestLoginWithGoogle(t *testing.T) {
	b := newBackend()
	b.handle("POST /authentication/login-google", func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeData(w, map[string]any{"accessToken": "acc", "refreshToken": "ref", "role": "student"})
	})
	a, _ := newTestAPI(t, b, nil)

	s, err := a.LoginWithGoogle(context.Background(), "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, "acc", s.AccessToken)
	assert.Equal(t, RoleStudent, s.Role)
	assert.JSONEq(t, `{"token":"google-id-token"}`, string(b.body("POST /authentication/login-google")))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"STUDENT", RoleStudent, true},
		{"student", RoleStudent, true},
		{" Lecturer ", RoleLecturer, true},
		{"admin", RoleAdmin, true},
		{"guest", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestProfilePatchApply(t *testing.T) {
	bio := "likes Go"
	skills := []string{"go", "sql"}
	u := ProfilePatch{Bio: &bio, Skills: &skills}.Apply(User{FullName: "An", Bio: "old"})

	assert.Equal(t, "An", u.FullName)
	assert.Equal(t, "likes Go", u.Bio)
	assert.Equal(t, []string{"go", "sql"}, u.Skills)
}
