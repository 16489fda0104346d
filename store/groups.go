package store

import (
	"context"
	"sync"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/httpclient"
)

// GroupStore tracks creating a group, loading one group and loading all
// groups as three independent operations.
type GroupStore struct {
	api *api.API

	mu     sync.Mutex
	create Slice[*api.Group]
	byID   Slice[*api.Group]
	all    Slice[[]api.Group]
}

// NewGroupStore creates a group store reading through a's hooks.
func NewGroupStore(a *api.API) *GroupStore {
	s := &GroupStore{api: a}
	s.clear()
	return s
}

func (s *GroupStore) clear() {
	s.create = Slice[*api.Group]{Status: cache.StatusIdle}
	s.byID = Slice[*api.Group]{Status: cache.StatusIdle}
	s.all = Slice[[]api.Group]{Status: cache.StatusIdle}
}

// Create creates a group. The groups family is invalidated on success.
func (s *GroupStore) Create(ctx context.Context, in api.CreateGroupInput) (api.Group, error) {
	s.mu.Lock()
	s.create = loading(s.create)
	s.mu.Unlock()

	g, err := s.api.CreateGroup.Use("").Mutate(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.create = failed(s.create, err)
		return api.Group{}, err
	}
	s.create = succeeded(&g)
	return g, nil
}

// FetchByID loads one group. An empty id leaves the slice untouched.
func (s *GroupStore) FetchByID(ctx context.Context, id string) (api.Group, error) {
	if id == "" {
		return api.Group{}, nil
	}

	s.mu.Lock()
	s.byID = loading(s.byID)
	s.mu.Unlock()

	g, err := s.api.Group.Use(id).Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.byID = failed(s.byID, err)
		return api.Group{}, err
	}
	s.byID = succeeded(&g)
	return g, nil
}

// FetchAll loads the group list, optionally filtered.
func (s *GroupStore) FetchAll(ctx context.Context, params map[string]any) ([]api.Group, error) {
	s.mu.Lock()
	s.all = loading(s.all)
	s.mu.Unlock()

	groups, err := s.api.Groups.Use(params).Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.all = failed(s.all, err)
		return nil, err
	}
	s.all = succeeded(groups)
	return groups, nil
}

// Created returns the create slice.
func (s *GroupStore) Created() Slice[*api.Group] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create
}

// Current returns the by-id slice.
func (s *GroupStore) Current() Slice[*api.Group] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID
}

// All returns the list slice.
func (s *GroupStore) All() Slice[[]api.Group] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all
}

// Reset implements Resetter.
func (s *GroupStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	return nil
}

// PostStore holds one page of the post feed.
type PostStore struct {
	api *api.API

	mu    sync.Mutex
	posts Slice[httpclient.Page[api.Post]]
}

// NewPostStore creates a post store reading through a's hooks.
func NewPostStore(a *api.API) *PostStore {
	return &PostStore{api: a, posts: Slice[httpclient.Page[api.Post]]{Status: cache.StatusIdle}}
}

// FetchPosts loads one page of posts.
func (s *PostStore) FetchPosts(ctx context.Context, page, limit int, params map[string]any) (httpclient.Page[api.Post], error) {
	s.mu.Lock()
	s.posts = loading(s.posts)
	s.mu.Unlock()

	p, err := s.api.Posts.Use(page, limit, params).Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.posts = failed(s.posts, err)
		return httpclient.Page[api.Post]{}, err
	}
	s.posts = succeeded(p)
	return p, nil
}

// State returns the feed slice.
func (s *PostStore) State() Slice[httpclient.Page[api.Post]] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts
}

// Reset implements Resetter.
func (s *PostStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = Slice[httpclient.Page[api.Post]]{Status: cache.StatusIdle}
	return nil
}
