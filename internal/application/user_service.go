package application

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-lifecycle/internal/domain/apperror"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
	repo "github.com/oksasatya/go-user-lifecycle/internal/domain/repository"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/storage"
	"github.com/oksasatya/go-user-lifecycle/pkg/helpers"
)

// Service coordinates the user store and the photo store so a user row and
// its photo never drift apart. Notifier and Indexer are optional.
type Service struct {
	Repo        repo.UserRepository
	Photos      storage.PhotoStore
	Notifier    Notifier
	Indexer     Indexer
	Logger      *logrus.Logger
	PhotoFolder string
}

func NewService(repo repo.UserRepository, photos storage.PhotoStore, notifier Notifier, indexer Indexer, logger *logrus.Logger, photoFolder string) *Service {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &Service{
		Repo:        repo,
		Photos:      photos,
		Notifier:    notifier,
		Indexer:     indexer,
		Logger:      logger,
		PhotoFolder: photoFolder,
	}
}

type UserPage struct {
	Users []entity.User
	Total int64
}

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	IsAdmin   bool
}

// UpdateUserInput holds the fields to change; nil means unchanged.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	IsAdmin   *bool
	IsUser    *bool
}

func (in UpdateUserInput) empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Email == nil &&
		in.Password == nil && in.IsAdmin == nil && in.IsUser == nil
}

// DeleteResult carries non-fatal problems hit while deleting.
type DeleteResult struct {
	Warnings []string
}

func (s *Service) List(ctx context.Context, offset, limit int) (*UserPage, error) {
	if offset < 0 || limit <= 0 {
		return nil, apperror.Validation("from must be >= 0 and limit > 0")
	}
	users, total, err := s.Repo.ListActive(ctx, offset, limit)
	if err != nil {
		return nil, apperror.WithOp("list users", "", err)
	}
	return &UserPage{Users: users, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetActiveByID(ctx, id)
	if err != nil {
		return nil, apperror.WithOp("get user", id, err)
	}
	return u, nil
}

// Create uploads the photo, if any, before inserting the row. When the insert
// fails the uploaded photo is deleted again before the error is returned.
func (s *Service) Create(ctx context.Context, in CreateUserInput, photo *storage.PhotoUpload) (string, error) {
	const op = "create user"

	email := strings.TrimSpace(in.Email)
	if email == "" || strings.TrimSpace(in.Password) == "" {
		return "", apperror.WithOp(op, "", apperror.Validation("email and password are required"))
	}
	if len(in.Password) > helpers.MaxPasswordBytes {
		return "", apperror.WithOp(op, "", apperror.Validation("password is too long"))
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return "", apperror.WithOp(op, "", err)
	}

	u := &entity.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
		IsUser:       true,
		State:        true,
	}

	var uploaded *storage.PhotoAsset
	if photo != nil {
		asset, err := s.Photos.Upload(ctx, s.withFolder(*photo))
		if err != nil {
			return "", apperror.WithOp(op, "", asUploadErr(err))
		}
		uploaded = &asset
		u.Photo = entity.NewPhotoRef(asset.AssetID, asset.Locator)
	}

	id, err := s.Repo.Insert(ctx, u)
	if err != nil {
		if uploaded != nil {
			s.compensate(ctx, op, "", uploaded.AssetID)
		}
		return "", apperror.WithOp(op, "", err)
	}

	s.Logger.WithField("user_id", id).Info("user created")
	s.publish(ctx, UserEvent{Type: EventUserCreated, UserID: id, Email: u.Email, Name: u.FullName(), PhotoURL: u.Photo.Locator})
	s.index(ctx, u)
	return id, nil
}

// Update checks the confirmation secret before anything else, swaps the photo
// if one is supplied, and then writes the fields and the new photo ref in a
// single store call. If that call fails after the swap, the new photo ref is
// still persisted on its own and the field error is returned.
func (s *Service) Update(ctx context.Context, id, confirmationSecret string, in UpdateUserInput, photo *storage.PhotoUpload) error {
	const op = "update user"

	if in.empty() && photo == nil {
		return apperror.WithOp(op, id, apperror.Validation("nothing to update"))
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) == "" {
		return apperror.WithOp(op, id, apperror.Validation("email cannot be empty"))
	}
	if in.Password != nil && (strings.TrimSpace(*in.Password) == "" || len(*in.Password) > helpers.MaxPasswordBytes) {
		return apperror.WithOp(op, id, apperror.Validation("password must be 1 to 72 bytes"))
	}

	cred, err := s.Repo.GetCredentials(ctx, id)
	if err != nil {
		return apperror.WithOp(op, id, err)
	}
	if !helpers.CompareHashAndPassword(cred.PasswordHash, confirmationSecret) {
		return apperror.WithOp(op, id, apperror.Unauthorized("Your password is incorrect"))
	}

	patch := entity.UserPatch{
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
		Email:     trimmed(in.Email),
		IsAdmin:   in.IsAdmin,
		IsUser:    in.IsUser,
	}
	if in.Password != nil {
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return apperror.WithOp(op, id, err)
		}
		patch.PasswordHash = &hash
	}

	var replaced *storage.PhotoAsset
	if photo != nil {
		asset, err := s.Photos.Replace(ctx, cred.Photo.AssetID, s.withFolder(*photo))
		if err != nil {
			return apperror.WithOp(op, id, asUploadErr(err))
		}
		replaced = &asset
		ref := entity.NewPhotoRef(asset.AssetID, asset.Locator)
		patch.Photo = &ref
	}

	if err := s.Repo.UpdateFields(ctx, id, patch); err != nil {
		if replaced != nil {
			s.keepReplacedPhoto(ctx, op, id, cred.Photo.AssetID, *patch.Photo)
		}
		return apperror.WithOp(op, id, err)
	}

	s.Logger.WithField("user_id", id).WithField("fields", patch.ChangedFields()).Info("user updated")
	s.afterUpdate(ctx, id, cred, patch)
	return nil
}

// Delete soft-deletes the user. Removing the photo is best-effort: a failure
// is reported as a warning and the record is still deactivated.
func (s *Service) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	const op = "delete user"

	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.WithOp(op, id, err)
	}

	res := &DeleteResult{}
	if !u.Photo.IsZero() {
		if err := s.Photos.Delete(ctx, u.Photo.AssetID); err != nil {
			incStat(statPhotoCleanupWarnings)
			s.Logger.WithError(err).WithField("user_id", id).WithField("asset_id", u.Photo.AssetID).
				Warn("photo delete failed; soft-deleting anyway")
			res.Warnings = append(res.Warnings, "photo cleanup failed: "+apperror.MessageOf(err))
		}
	}

	if err := s.Repo.SoftDelete(ctx, id); err != nil {
		return nil, apperror.WithOp(op, id, err)
	}

	s.Logger.WithField("user_id", id).Info("user deleted")
	if u.State {
		s.publish(ctx, UserEvent{Type: EventUserDeleted, UserID: id, Email: u.Email, Name: u.FullName()})
	}
	if s.Indexer != nil {
		if err := s.Indexer.Remove(ctx, id); err != nil {
			incStat(statIndexFailures)
			s.Logger.WithError(err).WithField("user_id", id).Warn("search index remove failed")
		}
	}
	return res, nil
}

// Search queries the search projection; it is empty when search is not wired.
func (s *Service) Search(ctx context.Context, q string, size int) ([]SearchHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.Validation("q is required")
	}
	if s.Indexer == nil {
		return []SearchHit{}, nil
	}
	hits, err := s.Indexer.Search(ctx, q, size)
	if err != nil {
		return nil, apperror.WithOp("search users", "", err)
	}
	return hits, nil
}

func (s *Service) afterUpdate(ctx context.Context, id string, cred *entity.Credentials, patch entity.UserPatch) {
	ev := UserEvent{Type: EventUserUpdated, UserID: id, Email: cred.Email, Name: cred.FirstName, Changes: patch.ChangedFields()}
	u, err := s.Repo.GetActiveByID(ctx, id)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("reload after update failed")
	} else {
		ev.Email, ev.Name, ev.PhotoURL = u.Email, u.FullName(), u.Photo.Locator
		s.index(ctx, u)
	}
	s.publish(ctx, ev)
}

// keepReplacedPhoto runs when the combined write fails after Replace already
// removed the prior asset. The row is pointed at the new asset on its own so
// it never references a deleted object; the new asset is only removed when
// that write fails as well.
func (s *Service) keepReplacedPhoto(ctx context.Context, op, id, priorAssetID string, ref entity.PhotoRef) {
	fields := logrus.Fields{"op": op, "user_id": id, "asset_id": ref.AssetID, "prior_asset_id": priorAssetID}
	err := s.Repo.UpdateFields(context.WithoutCancel(ctx), id, entity.UserPatch{Photo: &ref})
	if err == nil {
		incStat(statPhotoOnlyWrites)
		s.Logger.WithFields(fields).Warn("field update failed; kept the new photo")
		return
	}
	s.Logger.WithError(err).WithFields(fields).Error("photo ref write failed after replace")
	s.compensate(ctx, op, id, ref.AssetID)
}

// compensate removes an asset uploaded by a step that later failed. It runs
// even when the request context is already cancelled.
func (s *Service) compensate(ctx context.Context, op, id, assetID string) {
	incStat(statCompensations)
	if err := s.Photos.Delete(context.WithoutCancel(ctx), assetID); err != nil {
		incStat(statCompensationFailures)
		s.Logger.WithError(err).WithFields(logrus.Fields{"op": op, "user_id": id, "asset_id": assetID}).
			Error("compensating photo delete failed; asset orphaned")
		return
	}
	s.Logger.WithFields(logrus.Fields{"op": op, "user_id": id, "asset_id": assetID}).Warn("rolled back uploaded photo")
}

func (s *Service) publish(ctx context.Context, ev UserEvent) {
	if s.Notifier == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := s.Notifier.Notify(ctx, ev); err != nil {
		incStat(statNotifyFailures)
		s.Logger.WithError(err).WithField("user_id", ev.UserID).WithField("event", ev.Type).Warn("notify failed")
	}
}

func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.Index(ctx, u); err != nil {
		incStat(statIndexFailures)
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("search index failed")
	}
}

func (s *Service) withFolder(p storage.PhotoUpload) storage.PhotoUpload {
	if p.Folder == "" {
		p.Folder = s.PhotoFolder
	}
	return p
}

func asUploadErr(err error) error {
	if apperror.KindOf(err) != apperror.KindUnknown {
		return err
	}
	return apperror.Upload("photo upload failed", err)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
