package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/db/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the destination site backed by gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu             sync.Mutex
	countsDeferred bool
	cacheSuspended bool
	options        map[string]string
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, options: make(map[string]string)}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates the content tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Term{},
		&models.TermRelationship{},
		&models.Post{},
		&models.Comment{},
		&models.Option{},
		&models.ImportJob{},
	); err != nil {
		return fmt.Errorf("migrate content tables: %w", err)
	}
	for _, table := range models.MetaTables {
		if err := db.Table(table).AutoMigrate(&models.Meta{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (int64, bool, error) {
	var row models.User
	err := s.db.WithContext(ctx).Select("id").Where("login = ?", login).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find user %s: %w", login, err)
	}
	return row.ID, true, nil
}

func (s *Store) CreateUser(ctx context.Context, in content.NewUser) (int64, error) {
	sum := sha256.Sum256([]byte(in.Password))
	row := models.User{
		Login:        in.Login,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hex.EncodeToString(sum[:]),
		Role:         in.Role,
		Description:  in.Description,
	}
	if row.Role == "" {
		row.Role = "subscriber"
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create user %s: %w", in.Login, err)
	}
	return row.ID, nil
}

func (s *Store) FindTerm(ctx context.Context, taxonomy, slug string) (int64, bool, error) {
	var row models.Term
	err := s.db.WithContext(ctx).Select("id").Where("taxonomy = ? AND slug = ?", taxonomy, slug).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find term %s: %w", content.TermKey(taxonomy, slug), err)
	}
	return row.ID, true, nil
}

func (s *Store) CreateTerm(ctx context.Context, in content.NewTerm) (int64, error) {
	row := models.Term{
		Taxonomy:    in.Taxonomy,
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Parent:      in.Parent,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create term %s: %w", content.TermKey(in.Taxonomy, in.Slug), err)
	}
	return row.ID, nil
}

func (s *Store) TermParent(ctx context.Context, termID int64) (int64, error) {
	var row models.Term
	err := s.db.WithContext(ctx).Select("parent").Where("id = ?", termID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, content.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read term %d: %w", termID, err)
	}
	return row.Parent, nil
}

func (s *Store) UpdateTermParent(ctx context.Context, termID, parent int64) error {
	res := s.db.WithContext(ctx).Model(&models.Term{}).Where("id = ?", termID).Update("parent", parent)
	if res.Error != nil {
		return fmt.Errorf("update term %d parent: %w", termID, res.Error)
	}
	return nil
}

func (s *Store) Taxonomies(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.WithContext(ctx).Model(&models.Term{}).Distinct().Order("taxonomy").Pluck("taxonomy", &out).Error; err != nil {
		return nil, fmt.Errorf("list taxonomies: %w", err)
	}
	return out, nil
}

func (s *Store) CreatePost(ctx context.Context, in content.NewPost) (int64, error) {
	row := models.Post{
		Type:          in.Type,
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Status:        in.Status,
		Name:          in.Name,
		Date:          in.Date,
		DateGMT:       in.DateGMT,
		GUID:          in.GUID,
		Parent:        in.Parent,
		MenuOrder:     in.MenuOrder,
		Author:        in.Author,
		CommentStatus: in.CommentStatus,
		PingStatus:    in.PingStatus,
		Password:      in.Password,
		MimeType:      in.MimeType,
	}
	if row.Status == "" {
		row.Status = "publish"
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create post %s: %w", in.GUID, err)
	}
	return row.ID, nil
}

func (s *Store) UpdatePost(ctx context.Context, postID int64, patch content.PostPatch) error {
	updates := map[string]any{}
	if patch.Parent != nil {
		updates["parent"] = *patch.Parent
	}
	if patch.Author != nil {
		updates["author"] = *patch.Author
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update post %d: %w", postID, err)
	}
	return nil
}

func (s *Store) FindPostByTitle(ctx context.Context, postType, title string) (int64, bool, error) {
	var row models.Post
	err := s.db.WithContext(ctx).Select("id").
		Where("type = ? AND title = ?", postType, title).
		Order("id").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find %s titled %q: %w", postType, title, err)
	}
	return row.ID, true, nil
}

func (s *Store) AddPostTerms(ctx context.Context, postID int64, termIDs []int64) error {
	if len(termIDs) == 0 {
		return nil
	}
	rows := make([]models.TermRelationship, 0, len(termIDs))
	for _, id := range termIDs {
		rows = append(rows, models.TermRelationship{PostID: postID, TermID: id})
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("attach terms to post %d: %w", postID, err)
	}
	if !s.deferred() {
		return s.recountTerms(ctx, termIDs)
	}
	return nil
}

func (s *Store) CreateComment(ctx context.Context, in content.NewComment) (int64, error) {
	row := models.Comment{
		PostID:      in.PostID,
		Author:      in.Author,
		AuthorEmail: in.AuthorEmail,
		AuthorIP:    in.AuthorIP,
		AuthorURL:   in.AuthorURL,
		Date:        in.Date,
		DateGMT:     in.DateGMT,
		Content:     in.Content,
		Approved:    in.Approved,
		Type:        in.Type,
		Parent:      in.Parent,
		UserID:      in.UserID,
	}
	if row.Approved == "" {
		row.Approved = "1"
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create comment on post %d: %w", in.PostID, err)
	}
	if !s.deferred() {
		if err := s.recountComments(ctx, in.PostID); err != nil {
			return row.ID, err
		}
	}
	return row.ID, nil
}

func (s *Store) UpdateComment(ctx context.Context, commentID int64, patch content.CommentPatch) error {
	updates := map[string]any{}
	if patch.Parent != nil {
		updates["parent"] = *patch.Parent
	}
	if patch.UserID != nil {
		updates["user_id"] = *patch.UserID
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", commentID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update comment %d: %w", commentID, err)
	}
	return nil
}

func (s *Store) deferred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsDeferred
}
