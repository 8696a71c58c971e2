package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"menu-service/db"
	"menu-service/models"
)

// ParentChange is the tri-state parent of an update: unchanged when Set is false,
// moved to root when Set and ID is nil, reparented otherwise.
type ParentChange struct {
	Set bool
	ID  *string
}

type MenuPatch struct {
	Name   *string
	Parent ParentChange
	// ExpectParentName, when set, must equal the name of the current parent ("" for a root).
	ExpectParentName *string
}

// MenuStore owns the menus table and keeps it a forest.
type MenuStore struct {
	db       db.DB
	notifier Notifier
	logger   *zap.Logger
	newID    func() (string, error)
}

type StoreOption func(*MenuStore)

func WithNotifier(n Notifier) StoreOption {
	return func(s *MenuStore) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *zap.Logger) StoreOption {
	return func(s *MenuStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewMenuStore(d db.DB, opts ...StoreOption) *MenuStore {
	s := &MenuStore{
		db:       d,
		notifier: NopNotifier{},
		logger:   zap.NewNop(),
		newID:    newMenuID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newMenuID returns a UUIDv7, so ordering by id is ordering by creation time.
func newMenuID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *MenuStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const selectMenu = `SELECT id, name, parent_id FROM menus`

func scanMenus(rows db.Rows) ([]models.MenuNode, error) {
	defer rows.Close()
	var out []models.MenuNode
	for rows.Next() {
		var n models.MenuNode
		if err := rows.Scan(&n.ID, &n.Name, &n.ParentID); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func queryMenus(ctx context.Context, q db.Querier, sql string, args ...any) ([]models.MenuNode, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return scanMenus(rows)
}

func getMenu(ctx context.Context, q db.Querier, id string) (*models.MenuNode, error) {
	var n models.MenuNode
	err := q.QueryRow(ctx, selectMenu+` WHERE id = $1`, id).Scan(&n.ID, &n.Name, &n.ParentID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, internal("load menu", err)
	}
	return &n, nil
}

// ListRoots returns every node without a parent, ordered by id.
func (s *MenuStore) ListRoots(ctx context.Context) ([]models.MenuNode, error) {
	roots, err := queryMenus(ctx, s.db, selectMenu+` WHERE parent_id IS NULL ORDER BY id`)
	if err != nil {
		return nil, s.fail("list roots", "", internal("list roots", err))
	}
	if roots == nil {
		roots = []models.MenuNode{}
	}
	return roots, nil
}

func (s *MenuStore) FindByID(ctx context.Context, id string) (*models.MenuNode, error) {
	n, err := getMenu(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("find menu", id, err)
	}
	return n, nil
}

// FindSubtree loads id and all of its descendants with one recursive query and links them in memory.
// UNION drops rows already visited, so the walk ends even if the table holds a cycle.
func (s *MenuStore) FindSubtree(ctx context.Context, id string) (*models.MenuTree, error) {
	rows, err := queryMenus(ctx, s.db, `
		WITH RECURSIVE sub(id, name, parent_id) AS (
			SELECT id, name, parent_id FROM menus WHERE id = $1
			UNION
			SELECT m.id, m.name, m.parent_id FROM menus m JOIN sub ON m.parent_id = sub.id
		)
		SELECT id, name, parent_id FROM sub ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, s.fail("load subtree", id, internal("load subtree", err))
	}
	trees := buildForest(rows, hasID(id))
	if len(trees) == 0 {
		return nil, notFound(id)
	}
	return trees[0], nil
}

// FindRootForest returns all roots with their full subtrees.
func (s *MenuStore) FindRootForest(ctx context.Context) ([]*models.MenuTree, error) {
	rows, err := queryMenus(ctx, s.db, selectMenu+` ORDER BY id`)
	if err != nil {
		return nil, s.fail("load forest", "", internal("load forest", err))
	}
	return buildForest(rows, isRootNode), nil
}

// FindWithParent returns the subtree of id together with its parent node (nil for a root).
func (s *MenuStore) FindWithParent(ctx context.Context, id string) (*models.MenuView, error) {
	tree, err := s.FindSubtree(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &models.MenuView{MenuTree: *tree}
	if tree.ParentID != nil {
		parent, err := getMenu(ctx, s.db, *tree.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// parent deleted between the two reads; report what the subtree read saw
				return view, nil
			}
			return nil, s.fail("load parent", id, err)
		}
		view.Parent = parent
	}
	return view, nil
}

type ancestor struct {
	id       string
	name     string
	parentID *string
}

// ancestors returns id and every node above it, in no particular order. UNION drops rows
// already visited, so the walk is exact at any depth and ends even on a corrupted table.
func ancestors(ctx context.Context, q db.Querier, id string) ([]ancestor, error) {
	rows, err := q.Query(ctx, `
		WITH RECURSIVE anc(id, name, parent_id) AS (
			SELECT id, name, parent_id FROM menus WHERE id = $1
			UNION
			SELECT m.id, m.name, m.parent_id FROM menus m JOIN anc ON m.id = anc.parent_id
		)
		SELECT id, name, parent_id FROM anc`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ancestor
	for rows.Next() {
		var a ancestor
		if err := rows.Scan(&a.id, &a.name, &a.parentID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindWithDerived computes depth and parent name from the set of nodes above id.
func (s *MenuStore) FindWithDerived(ctx context.Context, id string) (*models.MenuDetail, error) {
	chain, err := ancestors(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("load ancestors", id, internal("load ancestors", err))
	}
	var self *ancestor
	byID := make(map[string]ancestor, len(chain))
	for i := range chain {
		byID[chain[i].id] = chain[i]
		if chain[i].id == id {
			self = &chain[i]
		}
	}
	if self == nil {
		return nil, notFound(id)
	}
	d := &models.MenuDetail{
		ID:    self.id,
		Name:  self.name,
		Depth: len(chain) - 1,
	}
	if self.parentID != nil {
		d.ParentName = byID[*self.parentID].name
	}
	return d, nil
}

// isAncestor reports whether ancestorID is node itself or lies on its path to the root.
func isAncestor(ctx context.Context, q db.Querier, node, ancestorID string) (bool, error) {
	var n int
	err := q.QueryRow(ctx, `
		WITH RECURSIVE anc(id, parent_id) AS (
			SELECT id, parent_id FROM menus WHERE id = $1
			UNION
			SELECT m.id, m.parent_id FROM menus m JOIN anc ON m.id = anc.parent_id
		)
		SELECT COUNT(*) FROM anc WHERE id = $2`,
		node, ancestorID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// lockTree serialises structural writers on PostgreSQL; plain reads are not blocked.
// SQLite transactions already take the database write lock at BEGIN.
func (s *MenuStore) lockTree(ctx context.Context, q db.Querier) error {
	if s.db.Dialect() != db.DialectPostgres {
		return nil
	}
	if _, err := q.Exec(ctx, `LOCK TABLE menus IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock menus: %w", err)
	}
	return nil
}

func checkParentExists(ctx context.Context, q db.Querier, parentID string) error {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM menus WHERE id = $1`, parentID).Scan(&one)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return invalidParent("parent %q does not exist", parentID)
		}
		return internal("check parent", err)
	}
	return nil
}

// Create inserts a new node under parentID, or as a root when parentID is nil.
func (s *MenuStore) Create(ctx context.Context, name string, parentID *string) (*models.MenuNode, error) {
	if name == "" {
		return nil, badRequest("name is required")
	}
	id, err := s.newID()
	if err != nil {
		return nil, s.fail("allocate id", "", internal("allocate id", err))
	}
	node := &models.MenuNode{ID: id, Name: name, ParentID: parentID}

	err = s.db.InTx(ctx, func(q db.Querier) error {
		if err := s.lockTree(ctx, q); err != nil {
			return internal("create menu", err)
		}
		if parentID != nil {
			if err := checkParentExists(ctx, q, *parentID); err != nil {
				return err
			}
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO menus (id, name, parent_id) VALUES ($1, $2, $3)`,
			node.ID, node.Name, node.ParentID,
		); err != nil {
			return internal("insert menu", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("create menu", id, s.txError("create menu", err))
	}

	s.notify(ctx, ChangeCreated, *node)
	return node, nil
}

// Update renames and/or reparents id. Parent existence and cycle freedom are checked in
// the same transaction as the write.
func (s *MenuStore) Update(ctx context.Context, id string, patch MenuPatch) (*models.MenuNode, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, badRequest("name must not be empty")
	}

	var updated *models.MenuNode
	err := s.db.InTx(ctx, func(q db.Querier) error {
		if err := s.lockTree(ctx, q); err != nil {
			return internal("update menu", err)
		}
		cur, err := getMenu(ctx, q, id)
		if err != nil {
			return err
		}
		if patch.ExpectParentName != nil {
			if err := checkParentName(ctx, q, cur, *patch.ExpectParentName); err != nil {
				return err
			}
		}
		next := *cur
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Parent.Set {
			next.ParentID = patch.Parent.ID
			if next.ParentID != nil && !sameParent(cur.ParentID, next.ParentID) {
				if err := s.checkReparent(ctx, q, id, *next.ParentID); err != nil {
					return err
				}
			}
		}
		if _, err := q.Exec(ctx, `
			UPDATE menus SET name = $1, parent_id = $2, updated_at = CURRENT_TIMESTAMP
			WHERE id = $3`,
			next.Name, next.ParentID, id,
		); err != nil {
			return internal("update menu", err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, s.fail("update menu", id, s.txError("update menu", err))
	}

	s.notify(ctx, ChangeUpdated, *updated)
	return updated, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// checkParentName rejects a patch whose expected parent name differs from the stored one.
func checkParentName(ctx context.Context, q db.Querier, cur *models.MenuNode, want string) error {
	have := ""
	if cur.ParentID != nil {
		parent, err := getMenu(ctx, q, *cur.ParentID)
		if err != nil {
			return err
		}
		have = parent.Name
	}
	if have != want {
		return badRequest("parentMenuName %q does not match current parent %q; rename the parent through its own id", want, have)
	}
	return nil
}

// checkReparent rejects a parent that is id itself, does not exist, or lies inside id's subtree.
func (s *MenuStore) checkReparent(ctx context.Context, q db.Querier, id, parentID string) error {
	if parentID == id {
		return invalidParent("menu %q cannot be its own parent", id)
	}
	if err := checkParentExists(ctx, q, parentID); err != nil {
		return err
	}
	cycle, err := isAncestor(ctx, q, parentID, id)
	if err != nil {
		return internal("check cycle", err)
	}
	if cycle {
		return &Error{
			Kind:    KindWouldCycle,
			Message: fmt.Sprintf("%q is a descendant of %q", parentID, id),
		}
	}
	return nil
}

// Delete removes a leaf. Nodes that still have children are rejected with ErrHasChildren.
func (s *MenuStore) Delete(ctx context.Context, id string) (*models.MenuNode, error) {
	var deleted *models.MenuNode
	err := s.db.InTx(ctx, func(q db.Querier) error {
		if err := s.lockTree(ctx, q); err != nil {
			return internal("delete menu", err)
		}
		n, err := getMenu(ctx, q, id)
		if err != nil {
			return err
		}
		var children int
		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM menus WHERE parent_id = $1`, id).Scan(&children); err != nil {
			return internal("count children", err)
		}
		if children > 0 {
			return &Error{
				Kind:    KindConflict,
				Message: fmt.Sprintf("menu %q has %d children; delete or move them first", id, children),
			}
		}
		if _, err := q.Exec(ctx, `DELETE FROM menus WHERE id = $1`, id); err != nil {
			return internal("delete menu", err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return nil, s.fail("delete menu", id, s.txError("delete menu", err))
	}

	s.notify(ctx, ChangeDeleted, *deleted)
	return deleted, nil
}

// txError keeps classified errors and wraps begin/commit failures as Internal.
func (s *MenuStore) txError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return internal(op, err)
}

// fail logs Internal errors with the menu they concern and returns err unchanged.
func (s *MenuStore) fail(op, id string, err error) error {
	if KindOf(err) == KindInternal {
		s.logger.Error("menu store failure",
			zap.String("op", op),
			zap.String("menuID", id),
			zap.Error(err),
		)
	}
	return err
}

func (s *MenuStore) notify(ctx context.Context, kind ChangeKind, n models.MenuNode) {
	s.notifier.MenuChanged(context.WithoutCancel(ctx), Change{Kind: kind, Node: n})
}
