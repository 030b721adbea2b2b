package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"salesboard/config"
	"salesboard/model"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

const legacyUsersMigration = "legacy_users_table"

const maxPasswordBytes = 72

// migration records one-off data migrations already applied.
type migration struct {
	Name      string `gorm:"primaryKey"`
	AppliedAt time.Time
}

func (migration) TableName() string {
	return "auth_migrations"
}

// CredentialInput is what a seeding utility or the admin form supplies.
type CredentialInput struct {
	Username    string     `validate:"required,max=64"`
	Password    string     `validate:"required,max=72"`
	DisplayName string     `validate:"max=128"`
	Role        model.Role `validate:"required,oneof=user admin"`
}

// Store is the credential store accessor.
type Store struct {
	db       *gorm.DB
	path     string
	validate *validator.Validate
}

// Open opens (creating if needed) the credential database and brings it to
// the canonical schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &model.StoreConnectionError{Path: path, Err: err}
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &model.StoreConnectionError{Path: path, Err: err}
	}
	s := &Store{db: db, path: path, validate: validator.New()}

	if err := db.AutoMigrate(&model.Credential{}, &migration{}); err != nil {
		s.Close()
		return nil, &model.StoreConnectionError{Path: path, Err: fmt.Errorf("failed to migrate credential schema: %w", err)}
	}
	if err := s.migrateLegacyUsers(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// migrateLegacyUsers copies rows from the old users table once. Existing
// credentials are never overwritten.
func (s *Store) migrateLegacyUsers() error {
	log := config.GetLogger().WithField("module", "auth")
	m := s.db.Migrator()
	if !m.HasTable("users") {
		return nil
	}
	var done int64
	if err := s.db.Model(&migration{}).Where("name = ?", legacyUsersMigration).Count(&done).Error; err != nil {
		return s.storeError(err)
	}
	if done > 0 {
		return nil
	}
	if !m.HasColumn("users", "username") || !m.HasColumn("users", "password_hash") {
		log.Warn("legacy users table has no username/password_hash columns, skipping migration")
		return nil
	}

	displayName := "NULL"
	if m.HasColumn("users", "full_name") {
		displayName = "NULLIF(full_name, '')"
	}
	role := "'user'"
	if m.HasColumn("users", "role") {
		role = "CASE WHEN role IN ('user', 'admin') THEN role ELSE 'user' END"
	}
	copySQL := fmt.Sprintf(`INSERT OR IGNORE INTO credentials (username, password_hash, display_name, role)
		SELECT username, password_hash, %s, %s FROM users
		WHERE username IS NOT NULL AND username <> '' AND password_hash IS NOT NULL AND password_hash <> ''`,
		displayName, role)

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(copySQL)
		if res.Error != nil {
			return s.storeError(res.Error)
		}
		if err := tx.Create(&migration{Name: legacyUsersMigration, AppliedAt: time.Now()}).Error; err != nil {
			return s.storeError(err)
		}
		log.Infof("migrated %d credentials from legacy users table", res.RowsAffected)
		return nil
	})
}

// Verify checks a login. Unknown users and wrong passwords give the same
// not-authenticated result.
func (s *Store) Verify(ctx context.Context, username, plaintext string) (model.LoginResult, error) {
	if username == "" || plaintext == "" {
		ComparePassword(dummyHash(), plaintext)
		return model.LoginResult{}, nil
	}
	var cred model.Credential
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ComparePassword(dummyHash(), plaintext)
		return model.LoginResult{}, nil
	}
	if err != nil {
		return model.LoginResult{}, s.storeError(err)
	}
	legacy := IsLegacyHash(cred.PasswordHash)
	if legacy {
		// keep legacy accounts as slow as bcrypt ones
		ComparePassword(dummyHash(), plaintext)
	}
	if !ComparePassword(cred.PasswordHash, plaintext) {
		return model.LoginResult{}, nil
	}
	if legacy {
		s.upgradeHash(ctx, cred.Username, plaintext)
	}
	return model.LoginResult{
		Authenticated: true,
		Role:          cred.Role,
		DisplayName:   displayName(cred),
	}, nil
}

// upgradeHash replaces a legacy SHA-256 hash with bcrypt after a successful
// login. Failures are logged and the login still succeeds.
func (s *Store) upgradeHash(ctx context.Context, username, plaintext string) {
	log := config.GetLogger().WithFields(logrus.Fields{"module": "auth", "username": username})
	if len(plaintext) > maxPasswordBytes {
		log.Warn("legacy password too long for bcrypt, hash left as is")
		return
	}
	hashed, err := HashPassword(plaintext)
	if err != nil {
		config.LogError(config.GetLogger(), "auth", "upgradeHash", "hash password", username, err)
		return
	}
	err = s.db.WithContext(ctx).Model(&model.Credential{}).
		Where("username = ?", username).
		Update("password_hash", hashed).Error
	if err != nil {
		config.LogError(config.GetLogger(), "auth", "upgradeHash", "store hash", username, err)
		return
	}
	log.Info("legacy password hash upgraded to bcrypt")
}

// CreateOrReplace upserts a credential by username, storing only the bcrypt hash.
func (s *Store) CreateOrReplace(ctx context.Context, in CredentialInput) error {
	cred, err := s.prepare(in)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "display_name", "role"}),
	}).Create(cred).Error
	if err != nil {
		return s.storeError(err)
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module":   "auth",
		"username": cred.Username,
		"role":     cred.Role,
	}).Info("credential saved")
	return nil
}

// Create adds a new credential and fails with ErrUserExists on a duplicate.
func (s *Store) Create(ctx context.Context, in CredentialInput) error {
	cred, err := s.prepare(in)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Credential{}).Where("username = ?", cred.Username).Count(&n).Error; err != nil {
			return s.storeError(err)
		}
		if n > 0 {
			return ErrUserExists
		}
		if err := tx.Create(cred).Error; err != nil {
			return s.storeError(err)
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context) ([]model.UserSummary, error) {
	var creds []model.Credential
	if err := s.db.WithContext(ctx).Select("username", "display_name", "role").Order("username").Find(&creds).Error; err != nil {
		return nil, s.storeError(err)
	}
	out := make([]model.UserSummary, len(creds))
	for i, c := range creds {
		out[i] = model.UserSummary{Username: c.Username, DisplayName: displayName(c), Role: c.Role}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, username string) error {
	res := s.db.WithContext(ctx).Where("username = ?", username).Delete(&model.Credential{})
	if res.Error != nil {
		return s.storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) prepare(in CredentialInput) (*model.Credential, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Role == "" {
		in.Role = model.RoleUser
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &model.ValidationError{Field: strings.ToLower(verrs[0].Field()), Reason: verrs[0].Tag()}
		}
		return nil, &model.ValidationError{Field: "credential", Reason: err.Error()}
	}
	if strings.ContainsAny(in.Username, " \t\r\n") {
		return nil, &model.ValidationError{Field: "username", Reason: "must not contain whitespace"}
	}
	// validator counts runes; bcrypt's limit is in bytes.
	if len(in.Password) > maxPasswordBytes {
		return nil, &model.ValidationError{Field: "password", Reason: "max"}
	}
	hashed, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	cred := &model.Credential{Username: in.Username, PasswordHash: hashed, Role: in.Role}
	if in.DisplayName != "" {
		name := in.DisplayName
		cred.DisplayName = &name
	}
	return cred, nil
}

func (s *Store) storeError(err error) error {
	return &model.StoreConnectionError{Path: s.path, Err: err}
}

func displayName(c model.Credential) string {
	if c.DisplayName != nil && *c.DisplayName != "" {
		return *c.DisplayName
	}
	return c.Username
}
