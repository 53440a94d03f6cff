package service

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"intranet_admin/internal/model"
	"intranet_admin/internal/repository"
	applog "intranet_admin/pkg/log"

	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	// service 里有 log.Errorf，初始化一下避免输出干扰
	applog.Init("error", "console", "")
	code := m.Run()
	os.Exit(code)
}

// fakeEntityRepo 是内存版的 EntityRepository，按插入顺序返回。
type fakeEntityRepo[T any] struct {
	mu    sync.Mutex
	rows  map[string]*T
	order []string
	idOf  func(*T) string

	createErr error
	listErr   error
	updates   []map[string]any
	creates   int
}

func newFakeEntityRepo[T any](idOf func(*T) string, seed ...T) *fakeEntityRepo[T] {
	r := &fakeEntityRepo[T]{rows: map[string]*T{}, idOf: idOf}
	for i := range seed {
		row := seed[i]
		r.rows[idOf(&row)] = &row
		r.order = append(r.order, idOf(&row))
	}
	return r
}

func (r *fakeEntityRepo[T]) List(ctx context.Context, filters map[string]any) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		if row, ok := r.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeEntityRepo[T]) FindByID(ctx context.Context, id string) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *fakeEntityRepo[T]) Create(ctx context.Context, entity *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	// 模拟 BeforeCreate 钩子生成主键
	if hook, ok := any(entity).(interface{ BeforeCreate(*gorm.DB) error }); ok {
		_ = hook.BeforeCreate(nil)
	}
	cp := *entity
	id := r.idOf(&cp)
	r.rows[id] = &cp
	r.order = append(r.order, id)
	return nil
}

func (r *fakeEntityRepo[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.updates = append(r.updates, fields)
	return nil
}

func (r *fakeEntityRepo[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	return nil
}

// fakeUserRepo 在 fakeEntityRepo 之上补充认证相关查询。
type fakeUserRepo struct {
	*fakeEntityRepo[model.User]
	findByEmailErr error
	touched        map[string]time.Time
}

func newFakeUserRepo(seed ...model.User) *fakeUserRepo {
	return &fakeUserRepo{
		fakeEntityRepo: newFakeEntityRepo(func(u *model.User) string { return u.ID }, seed...),
		touched:        map[string]time.Time{},
	}
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if r.findByEmailErr != nil {
		return nil, r.findByEmailErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) TouchLastSignIn(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[userID] = at
	return nil
}

// fakeSessionRepo 是内存版会话存储，Publish 只记录事件。
type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]repository.SessionRecord
	ttls      map[string]time.Duration
	published []repository.SessionEvent
	incoming  chan repository.SessionEvent
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: map[string]repository.SessionRecord{},
		ttls:     map[string]time.Duration{},
		incoming: make(chan repository.SessionEvent, 8),
	}
}

func (r *fakeSessionRepo) Save(ctx context.Context, rec repository.SessionRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[rec.ID] = rec
	r.ttls[rec.ID] = ttl
	return nil
}

func (r *fakeSessionRepo) Get(ctx context.Context, sessionID string) (*repository.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &rec, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) Publish(ctx context.Context, event repository.SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, event)
	return nil
}

func (r *fakeSessionRepo) Subscribe(ctx context.Context, fn func(repository.SessionEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-r.incoming:
			fn(e)
		}
	}
}

// fakeCategoryRepo 是内存版分类存储，删除为级联且幂等。
type fakeCategoryRepo struct {
	rows    repository.CategoryRows
	deletes []string
}

func (r *fakeCategoryRepo) FindAll(ctx context.Context) (*repository.CategoryRows, error) {
	cp := repository.CategoryRows{
		Categories:    append([]model.Category{}, r.rows.Categories...),
		Subcategories: append([]model.Subcategory{}, r.rows.Subcategories...),
		Level3:        append([]model.Level3Category{}, r.rows.Level3...),
	}
	return &cp, nil
}

func (r *fakeCategoryRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	r.rows.Categories = append(r.rows.Categories, *c)
	return nil
}

func (r *fakeCategoryRepo) CreateSubcategory(ctx context.Context, s *model.Subcategory) error {
	r.rows.Subcategories = append(r.rows.Subcategories, *s)
	return nil
}

func (r *fakeCategoryRepo) CreateLevel3(ctx context.Context, l *model.Level3Category) error {
	r.rows.Level3 = append(r.rows.Level3, *l)
	return nil
}

func (r *fakeCategoryRepo) DeleteCategory(ctx context.Context, categoryID string) error {
	r.deletes = append(r.deletes, "category:"+categoryID)
	var subs []string
	keep := r.rows.Subcategories[:0]
	for _, s := range r.rows.Subcategories {
		if s.CategoryID == categoryID {
			subs = append(subs, s.ID)
			continue
		}
		keep = append(keep, s)
	}
	r.rows.Subcategories = keep
	for _, s := range subs {
		r.dropLevel3(s)
	}
	cats := r.rows.Categories[:0]
	for _, c := range r.rows.Categories {
		if c.ID != categoryID {
			cats = append(cats, c)
		}
	}
	r.rows.Categories = cats
	return nil
}

func (r *fakeCategoryRepo) DeleteSubcategory(ctx context.Context, categoryID, subcategoryID string) error {
	r.deletes = append(r.deletes, "subcategory:"+categoryID+"/"+subcategoryID)
	keep := r.rows.Subcategories[:0]
	for _, s := range r.rows.Subcategories {
		if s.ID == subcategoryID && s.CategoryID == categoryID {
			continue
		}
		keep = append(keep, s)
	}
	r.rows.Subcategories = keep
	r.dropLevel3(subcategoryID)
	return nil
}

func (r *fakeCategoryRepo) DeleteLevel3(ctx context.Context, subcategoryID, level3ID string) error {
	r.deletes = append(r.deletes, "level3:"+subcategoryID+"/"+level3ID)
	keep := r.rows.Level3[:0]
	for _, l := range r.rows.Level3 {
		if l.ID == level3ID && l.SubcategoryID == subcategoryID {
			continue
		}
		keep = append(keep, l)
	}
	r.rows.Level3 = keep
	return nil
}

func (r *fakeCategoryRepo) dropLevel3(subcategoryID string) {
	keep := r.rows.Level3[:0]
	for _, l := range r.rows.Level3 {
		if l.SubcategoryID != subcategoryID {
			keep = append(keep, l)
		}
	}
	r.rows.Level3 = keep
}

// recordingSink 记录通知。
type recordingSink struct {
	mu       sync.Mutex
	success  []string
	failures []string
}

func (s *recordingSink) NotifySuccess(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.success = append(s.success, text)
}

func (s *recordingSink) NotifyError(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, text)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
