package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/noteduco342/moim-backend/internal/live"
	"github.com/noteduco342/moim-backend/internal/models"
)

type MembershipAction string

const (
	ActionNone  MembershipAction = ""
	ActionJoin  MembershipAction = "join"
	ActionLeave MembershipAction = "leave"
)

// MembershipView is what a user should see for a group: the confirmed state
// with the user's pending action, if any, already applied.
type MembershipView struct {
	GroupID     string           `json:"group_id"`
	IsMember    bool             `json:"is_member"`
	MemberCount int              `json:"member_count"`
	Capacity    int              `json:"capacity"`
	IsFull      bool             `json:"is_full"`
	Pending     MembershipAction `json:"pending,omitempty"`
}

// EffectiveMembership applies action on top of the confirmed group.
func EffectiveMembership(group *models.Group, userID string, action MembershipAction) MembershipView {
	isMember := group.IsMember(userID)
	count := group.MemberCount()

	switch action {
	case ActionJoin:
		if !isMember {
			count++
		}
		isMember = true
	case ActionLeave:
		if isMember {
			count--
		}
		isMember = false
	}

	return MembershipView{
		GroupID:     group.ID,
		IsMember:    isMember,
		MemberCount: count,
		Capacity:    group.Capacity,
		IsFull:      group.Capacity > 0 && count >= group.Capacity,
		Pending:     action,
	}
}

// MembershipMutator is the authoritative side the reconciler submits to.
type MembershipMutator interface {
	Join(ctx context.Context, groupID, userID string) (*models.Group, error)
	Leave(ctx context.Context, groupID, userID string) (*models.Group, error)
	Load(ctx context.Context, groupID string) (*models.Group, error)
}

// speculation is an in-flight membership change of one user.
type speculation struct {
	commandID string
	action    MembershipAction
	startedAt time.Time
}

// watchIdleTTL is how long an unregistered group stays watched after its last
// use.
const watchIdleTTL = 10 * time.Minute

type watchedGroup struct {
	confirmed *models.Group
	pending   map[string]speculation
	sub       *live.Subscription
	refs      int
	lastUsed  time.Time
}

// Reconciler shows users the outcome of their membership toggles before the
// store confirms them, and falls back to confirmed state when they fail.
// Confirmed state is fed by a live subscription per watched group.
type Reconciler struct {
	mutator MembershipMutator
	broker  live.Broker

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	groups map[string]*watchedGroup
	now    func() time.Time
}

func NewReconciler(mutator MembershipMutator, broker live.Broker) *Reconciler {
	base, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		mutator: mutator,
		broker:  broker,
		base:    base,
		cancel:  cancel,
		groups:  make(map[string]*watchedGroup),
		now:     time.Now,
	}
}

// Toggle leaves the group when the user is a confirmed member and joins it
// otherwise. The returned view reflects the committed state on success and
// the rolled back state on failure.
func (r *Reconciler) Toggle(ctx context.Context, groupID, userID string) (MembershipView, error) {
	w, err := r.ensure(ctx, groupID)
	if err != nil {
		return MembershipView{}, err
	}

	r.mu.Lock()
	if _, busy := w.pending[userID]; busy {
		view := EffectiveMembership(w.confirmed, userID, w.pending[userID].action)
		r.mu.Unlock()
		return view, ErrToggleInFlight
	}
	action := ActionJoin
	if w.confirmed.IsMember(userID) {
		action = ActionLeave
	}
	spec := speculation{commandID: uuid.NewString(), action: action, startedAt: time.Now()}
	w.pending[userID] = spec
	r.mu.Unlock()

	var committed *models.Group
	if action == ActionJoin {
		committed, err = r.mutator.Join(ctx, groupID, userID)
	} else {
		committed, err = r.mutator.Leave(ctx, groupID, userID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := w.pending[userID]; ok && current.commandID == spec.commandID {
		delete(w.pending, userID)
	}
	w.lastUsed = r.now()
	if err == nil {
		w.adopt(committed)
	} else {
		log.Printf("membership toggle rolled back group=%s user=%s action=%s after=%s err=%v",
			groupID, userID, action, time.Since(spec.startedAt), err)
	}
	return EffectiveMembership(w.confirmed, userID, w.pendingAction(userID)), err
}

// GetEffectiveMembership returns the confirmed state with the user's pending
// action applied. The group is watched from the first call on.
func (r *Reconciler) GetEffectiveMembership(ctx context.Context, groupID, userID string) (MembershipView, error) {
	w, err := r.ensure(ctx, groupID)
	if err != nil {
		return MembershipView{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return EffectiveMembership(w.confirmed, userID, w.pendingAction(userID)), nil
}

// Watch registers interest in a group. Each Watch must be paired with a
// Release.
func (r *Reconciler) Watch(ctx context.Context, groupID string) error {
	w, err := r.ensure(ctx, groupID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	w.refs++
	r.mu.Unlock()
	return nil
}

// Release drops one registration. The subscription ends when none are left.
func (r *Reconciler) Release(groupID string) {
	r.mu.Lock()
	w, ok := r.groups[groupID]
	if !ok {
		r.mu.Unlock()
		return
	}
	w.refs--
	if w.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.groups, groupID)
	sub := w.sub
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Close ends every subscription. The reconciler must not be used afterwards.
func (r *Reconciler) Close() {
	r.mu.Lock()
	subs := make([]*live.Subscription, 0, len(r.groups))
	for id, w := range r.groups {
		if w.sub != nil {
			subs = append(subs, w.sub)
		}
		delete(r.groups, id)
	}
	r.mu.Unlock()

	r.cancel()
	unsubscribeAll(subs)
}

// ensure returns the watched entry for a group, subscribing and loading the
// confirmed state when needed. Other groups left idle are dropped on the way.
func (r *Reconciler) ensure(ctx context.Context, groupID string) (*watchedGroup, error) {
	r.mu.Lock()
	now := r.now()
	w, ok := r.groups[groupID]
	if ok {
		w.lastUsed = now
	}
	idle := r.evictIdleLocked(now)
	if ok && w.confirmed != nil && w.sub != nil {
		r.mu.Unlock()
		unsubscribeAll(idle)
		return w, nil
	}
	if !ok {
		w = &watchedGroup{pending: make(map[string]speculation), lastUsed: now}
		r.groups[groupID] = w
	}
	needSub := w.sub == nil
	r.mu.Unlock()
	unsubscribeAll(idle)

	if needSub {
		sub, err := live.Subscribe[*models.Group](r.base, r.broker, live.GroupTopic(groupID),
			func(ctx context.Context) (*models.Group, error) {
				return r.mutator.Load(ctx, groupID)
			},
			live.ObserverFuncs[*models.Group]{
				Snapshot: func(g *models.Group) { r.confirm(groupID, w, g) },
				Error:    func(err error) { r.lost(groupID, w, err) },
			},
		)
		if err != nil {
			r.forget(groupID, w)
			return nil, classify(err)
		}
		r.mu.Lock()
		if r.groups[groupID] == w && w.sub == nil {
			w.sub = sub
			sub = nil
		}
		r.mu.Unlock()
		if sub != nil {
			// Another caller subscribed first, or the entry was dropped.
			sub.Unsubscribe()
		}
	}

	group, err := r.mutator.Load(ctx, groupID)
	if err != nil {
		r.forget(groupID, w)
		return nil, classify(err)
	}
	r.mu.Lock()
	w.adopt(group)
	r.mu.Unlock()
	return w, nil
}

// evictIdleLocked drops groups nobody registered for, with no toggle in
// flight, unused for longer than watchIdleTTL. The caller unsubscribes the
// returned subscriptions after releasing the lock.
func (r *Reconciler) evictIdleLocked(now time.Time) []*live.Subscription {
	var subs []*live.Subscription
	for groupID, w := range r.groups {
		if w.refs > 0 || len(w.pending) > 0 || now.Sub(w.lastUsed) <= watchIdleTTL {
			continue
		}
		delete(r.groups, groupID)
		if w.sub != nil {
			subs = append(subs, w.sub)
		}
	}
	return subs
}

func unsubscribeAll(subs []*live.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (r *Reconciler) confirm(groupID string, w *watchedGroup, g *models.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[groupID] != w {
		return
	}
	w.adopt(g)
}

// lost drops a group whose subscription failed so the next call re-watches it.
func (r *Reconciler) lost(groupID string, w *watchedGroup, err error) {
	log.Printf("membership watch lost group=%s err=%v", groupID, err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[groupID] == w && len(w.pending) == 0 {
		delete(r.groups, groupID)
	} else if r.groups[groupID] == w {
		w.sub = nil
	}
}

// forget removes an entry that never became usable.
func (r *Reconciler) forget(groupID string, w *watchedGroup) {
	r.mu.Lock()
	var sub *live.Subscription
	if r.groups[groupID] == w && w.confirmed == nil && w.refs == 0 {
		delete(r.groups, groupID)
		sub = w.sub
	}
	r.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// adopt replaces the confirmed state unless g is older than what is held.
func (w *watchedGroup) adopt(g *models.Group) {
	if g == nil {
		return
	}
	if w.confirmed != nil && g.UpdatedAt.Before(w.confirmed.UpdatedAt) {
		return
	}
	w.confirmed = g
}

func (w *watchedGroup) pendingAction(userID string) MembershipAction {
	if spec, ok := w.pending[userID]; ok {
		return spec.action
	}
	return ActionNone
}
