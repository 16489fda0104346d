// Package view derives screen-level values from API data: membership,
// pending requests, client-side paging and badges.
package view

import (
	"context"
	"slices"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/query"
	"github.com/huykn/teamup-client/store"
)

// DefaultPageSize is used when a page size is not positive.
const DefaultPageSize = 10

// Membership is a student's relation to a group.
type Membership string

const (
	MembershipNone   Membership = "none"
	MembershipMember Membership = "member"
	MembershipLeader Membership = "leader"
)

// MembershipOf returns how studentID belongs to g.
func MembershipOf(g api.Group, studentID string) Membership {
	if studentID == "" {
		return MembershipNone
	}
	if g.LeaderID == studentID {
		return MembershipLeader
	}
	for _, m := range g.Members {
		if m.UserID != studentID {
			continue
		}
		if m.Role == api.MemberLeader {
			return MembershipLeader
		}
		return MembershipMember
	}
	return MembershipNone
}

// PendingRequests returns the requests still waiting for a decision.
func PendingRequests(requests []api.JoinRequest) []api.JoinRequest {
	out := make([]api.JoinRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == api.RequestPending {
			out = append(out, r)
		}
	}
	return out
}

// HasPendingRequest reports whether requests holds a pending request for
// groupID.
func HasPendingRequest(requests []api.JoinRequest, groupID string) bool {
	return slices.ContainsFunc(requests, func(r api.JoinRequest) bool {
		return r.GroupID == groupID && r.Status == api.RequestPending
	})
}

// PageView is one page of a client-side paginated list.
type PageView[T any] struct {
	Items      []T
	Page       int
	Size       int
	Total      int
	TotalPages int
}

// HasPrev reports whether an earlier page exists.
func (p PageView[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a later page exists.
func (p PageView[T]) HasNext() bool { return p.Page < p.TotalPages }

// Paginate slices items into pages of size and returns page. The page is
// clamped into [1, TotalPages]; an empty list has one empty page.
func Paginate[T any](items []T, page, size int) PageView[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start := min((page-1)*size, total)
	end := min(start+size, total)
	return PageView[T]{
		Items:      items[start:end],
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: pages,
	}
}

// HotPosts orders posts newest first, breaking ties by the size of the
// posting group, and returns the requested page. posts is not modified.
func HotPosts(posts []api.Post, page, size int) PageView[api.Post] {
	sorted := slices.Clone(posts)
	slices.SortStableFunc(sorted, func(a, b api.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return groupSize(b) - groupSize(a)
	})
	return Paginate(sorted, page, size)
}

func groupSize(p api.Post) int {
	if p.Group == nil {
		return 0
	}
	return p.Group.MemberCount
}

// Badge is the label and tone shown for a request status.
type Badge struct {
	Label string
	Tone  string
}

// JoinRequestBadge maps a request status to its badge.
func JoinRequestBadge(status api.JoinRequestStatus) Badge {
	switch status {
	case api.RequestPending:
		return Badge{Label: "Pending", Tone: "warning"}
	case api.RequestApproved:
		return Badge{Label: "Approved", Tone: "success"}
	case api.RequestRejected:
		return Badge{Label: "Rejected", Tone: "danger"}
	default:
		return Badge{Label: string(status), Tone: "neutral"}
	}
}

// Tab is a section of the group detail screen.
type Tab string

const (
	TabOverview Tab = "overview"
	TabMembers  Tab = "members"
	TabPosts    Tab = "posts"
	TabRequests Tab = "requests"
	TabSettings Tab = "settings"
)

// GroupTabs returns the tabs visible for a membership.
func GroupTabs(m Membership) []Tab {
	switch m {
	case MembershipLeader:
		return []Tab{TabOverview, TabMembers, TabPosts, TabRequests, TabSettings}
	case MembershipMember:
		return []Tab{TabOverview, TabMembers, TabPosts}
	default:
		return []Tab{TabOverview, TabPosts}
	}
}

// ProfileSource exposes the signed-in profile. *store.ProfileStore
// implements it.
type ProfileSource interface {
	State() store.Slice[*api.User]
}

// PendingRequestView reads the signed-in student's join requests.
type PendingRequestView struct {
	profile  ProfileSource
	requests *query.ByID[[]api.JoinRequest]
}

// NewPendingRequestView combines the profile store with the by-student
// join-request hook.
func NewPendingRequestView(p ProfileSource, a *api.API) *PendingRequestView {
	return &PendingRequestView{profile: p, requests: a.JoinRequestsByStudent}
}

// Query returns the hook instance for the current profile. It is disabled
// until a profile is loaded.
func (v *PendingRequestView) Query() *query.Query[[]api.JoinRequest] {
	var id string
	if st := v.profile.State(); st.Data != nil {
		id = st.Data.UserID
	}
	return v.requests.Use(id)
}

// Pending returns the student's pending requests.
func (v *PendingRequestView) Pending(ctx context.Context) ([]api.JoinRequest, error) {
	all, err := v.Query().Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return PendingRequests(all), nil
}

// HasPending reports whether the student is waiting on groupID.
func (v *PendingRequestView) HasPending(ctx context.Context, groupID string) (bool, error) {
	all, err := v.Query().Fetch(ctx)
	if err != nil {
		return false, err
	}
	return HasPendingRequest(all, groupID), nil
}
