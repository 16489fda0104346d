package api

import (
	"context"
	"net/http"

	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
	"github.com/huykn/teamup-client/query"
)

// TransferLeaderInput names the member who becomes leader.
type TransferLeaderInput struct {
	NewLeaderID string `json:"newLeaderId"`
}

// LeaveGroupInput names the group the caller leaves.
type LeaveGroupInput struct {
	GroupID string `json:"groupId"`
}

// HandleAction is the leader's decision on a join request.
type HandleAction string

const (
	ActionAccept HandleAction = "ACCEPT"
	ActionReject HandleAction = "REJECT"
)

// HandleJoinRequestInput accepts or rejects one request. GroupID and
// StudentID are only used to pick the caches to invalidate.
type HandleJoinRequestInput struct {
	RequestID string       `json:"-"`
	GroupID   string       `json:"-"`
	StudentID string       `json:"-"`
	Action    HandleAction `json:"action"`
}

func (a *API) call(ctx context.Context, method, path string, body any) (Group, error) {
	return query.Call[Group](ctx, a.f.Requester(), httpclient.Request{Method: method, Path: path, Body: body})
}

// KickMember removes a member from groupID. The removed member's profile,
// every group listing and the group detail change, and so do pending
// requests.
func (a *API) KickMember(groupID string) *query.Mutation[string, Group] {
	return query.NewMutation(a.f, func(ctx context.Context, memberID string) (Group, error) {
		if groupID == "" || memberID == "" {
			return Group{}, query.ErrMissingID
		}
		return a.call(ctx, http.MethodPut, groupPath(groupID, "kick", memberID), nil)
	}, func(memberID string, _ Group) []cache.Key {
		return []cache.Key{
			{KeyUser, memberID},
			{KeyGroups},
			{KeyGroupsByCourse},
			{KeyGroup, groupID},
			{KeyJoinRequests},
			{KeyJoinRequestsByStudent, memberID},
		}
	})
}

// LeaveGroup removes the caller from a group.
func (a *API) LeaveGroup() *query.Mutation[LeaveGroupInput, Group] {
	return query.NewMutation(a.f, func(ctx context.Context, in LeaveGroupInput) (Group, error) {
		if in.GroupID == "" {
			return Group{}, query.ErrMissingID
		}
		return a.call(ctx, http.MethodPut, PathGroupLeave, in)
	}, func(in LeaveGroupInput, _ Group) []cache.Key {
		return []cache.Key{
			{KeyGroup, in.GroupID},
			{KeyGroups},
			{KeyGroupsByCourse},
			{KeyProfile},
			{KeyJoinRequests},
			{KeyJoinRequestsByStudent},
		}
	})
}

// TransferLeader hands leadership of groupID to another member.
func (a *API) TransferLeader(groupID string) *query.Mutation[TransferLeaderInput, Group] {
	return query.NewMutation(a.f, func(ctx context.Context, in TransferLeaderInput) (Group, error) {
		if groupID == "" || in.NewLeaderID == "" {
			return Group{}, query.ErrMissingID
		}
		return a.call(ctx, http.MethodPut, groupPath(groupID, "transfer-leader"), in)
	}, func(in TransferLeaderInput, _ Group) []cache.Key {
		return []cache.Key{
			{KeyGroup, groupID},
			{KeyGroups},
			{KeyGroupsByCourse},
			{KeyUser, in.NewLeaderID},
			{KeyProfile},
		}
	})
}

// AddMember adds a student to groupID directly.
func (a *API) AddMember(groupID string) *query.Mutation[string, Group] {
	return query.NewMutation(a.f, func(ctx context.Context, memberID string) (Group, error) {
		if groupID == "" || memberID == "" {
			return Group{}, query.ErrMissingID
		}
		return a.call(ctx, http.MethodPost, groupPath(groupID, "add-member", memberID), nil)
	}, func(memberID string, _ Group) []cache.Key {
		return []cache.Key{
			{KeyGroup, groupID},
			{KeyGroups},
			{KeyGroupsByCourse},
			{KeyUser, memberID},
			{KeyJoinRequests},
			{KeyJoinRequestsByStudent, memberID},
		}
	})
}

// HandleJoinRequest accepts or rejects a join request. It runs with
// HandleJoinRequestTimeout instead of the client default.
func (a *API) HandleJoinRequest() *query.Mutation[HandleJoinRequestInput, JoinRequest] {
	return query.NewMutation(a.f, func(ctx context.Context, in HandleJoinRequestInput) (JoinRequest, error) {
		if in.RequestID == "" {
			return JoinRequest{}, query.ErrMissingID
		}
		return query.Call[JoinRequest](ctx, a.f.Requester(), httpclient.Request{
			Method:  http.MethodPut,
			Path:    PathHandleJoinRequest + "/" + in.RequestID,
			Body:    in,
			Timeout: HandleJoinRequestTimeout,
		})
	}, func(in HandleJoinRequestInput, _ JoinRequest) []cache.Key {
		keys := []cache.Key{
			{KeyJoinRequests},
			{KeyJoinRequestsByStudent},
			{KeyGroups},
			{KeyGroupsByCourse},
		}
		if in.GroupID != "" {
			keys = append(keys, cache.Key{KeyGroup, in.GroupID})
		}
		if in.Action == ActionAccept && in.StudentID != "" {
			keys = append(keys, cache.Key{KeyUser, in.StudentID})
		}
		return keys
	})
}
