package importer

import (
	"context"

	"github.com/google/uuid"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

const importedUserDescription = "This user is created while installing demo content. You should delete or modify this user's information now."

// ImportUsers creates the export's authors as subscribers. Users already in
// the destination are mapped, never updated.
func (e *Engine) ImportUsers(ctx context.Context, doc *content.Document) (Summary, error) {
	var sum Summary
	err := e.withSession(ctx, func(sess *Session) error {
		for _, u := range doc.Users {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.importUser(ctx, sess, u, &sum)
		}
		return nil
	})
	return sum, err
}

func (e *Engine) importUser(ctx context.Context, sess *Session, u content.User, sum *Summary) {
	log := e.logger.With(zap.String("entity", "user"), zap.Int64("source_id", u.SourceID), zap.String("login", u.Login))

	if _, ok := sess.Users.source(u.SourceID); ok {
		sum.Skipped++
		return
	}
	if _, ok := sess.Users.get(loginKey(u.Login)); ok {
		sum.Skipped++
		return
	}

	existing, found, err := e.store.FindUserByLogin(ctx, u.Login)
	if err != nil {
		log.Warn("user lookup failed", zap.Error(err))
		sum.Failed++
		e.observe("user", "failed")
		return
	}
	if found {
		e.mapUser(sess, u, existing)
		sum.Existing++
		e.observe("user", "existing")
		return
	}

	id, err := e.store.CreateUser(ctx, content.NewUser{
		Login:       u.Login,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Password:    uuid.NewString(),
		Role:        "subscriber",
		Description: importedUserDescription,
	})
	if err != nil {
		log.Warn("user not created", zap.Error(err))
		sum.Failed++
		e.observe("user", "failed")
		return
	}

	e.mapUser(sess, u, id)
	sum.Created++
	e.observe("user", "created")
	log.Debug("user created", zap.Int64("id", id))
}

func (e *Engine) mapUser(sess *Session, u content.User, id int64) {
	if u.SourceID != 0 {
		sess.Users.set(idKey(u.SourceID), id)
	}
	sess.Users.set(loginKey(u.Login), id)
}
