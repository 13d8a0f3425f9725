// Package tenant сопоставляет ключ раздела и пароль с изолированным разделом данных.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
)

// ErrUnknownTenant возвращается справочником, если ключ раздела не найден.
var ErrUnknownTenant = errors.New("unknown tenant")

// Tenant описывает настроенный раздел: ключ, подпись и bcrypt-хеш пароля.
type Tenant struct {
	Key          string `yaml:"key"`
	Label        string `yaml:"label"`
	PasswordHash string `yaml:"password_hash"`
}

// Directory перечисляет известные разделы.
type Directory interface {
	Lookup(ctx context.Context, key string) (Tenant, error)
}

// Provisioner создаёт хранилище раздела при первом обращении.
type Provisioner interface {
	EnsurePartition(ctx context.Context, key, label string) (*model.Partition, error)
}

// Resolver проверяет пароль раздела и возвращает его описатель.
type Resolver struct {
	dir   Directory
	store Provisioner
}

// NewResolver создаёт Resolver поверх справочника и хранилища.
func NewResolver(dir Directory, store Provisioner) *Resolver {
	return &Resolver{dir: dir, store: store}
}

// dummyHash уравнивает время ответа для неизвестных ключей.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("barbershop"), bcrypt.DefaultCost)

// Resolve возвращает раздел по ключу и паролю. Повторные вызовы с тем же ключом
// возвращают тот же раздел; пустое хранилище создаётся один раз.
func (r *Resolver) Resolve(ctx context.Context, key, credential string) (*model.Partition, error) {
	t, err := r.dir.Lookup(ctx, key)
	if err != nil {
		if errors.Is(err, ErrUnknownTenant) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(credential))
			return nil, fmt.Errorf("%w: %v", model.ErrAuthentication, err)
		}
		return nil, fmt.Errorf("lookup tenant: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(credential)); err != nil {
		return nil, fmt.Errorf("%w: wrong password for tenant %q", model.ErrAuthentication, key)
	}

	p, err := r.store.EnsurePartition(ctx, t.Key, t.Label)
	if err != nil {
		return nil, fmt.Errorf("provision partition: %w", err)
	}
	return p, nil
}

// HashPassword возвращает bcrypt-хеш пароля для файла разделов.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
