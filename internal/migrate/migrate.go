package migrate

import (
	"context"

	"wishlist-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint'ы
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через Exec после AutoMigrate
	CreateUpdatedAtTrigger bool // триггеры updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

func exec(ctx context.Context, db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.WithContext(ctx).Exec(s.sql).Error; err != nil {
			log.Error(s.name, zap.Error(err))
			return err
		}
	}
	return nil
}

func MigrateWishlistDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы вишлистов")

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := exec(ctx, db, log, []step{
			{"pgcrypto error", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		}); err != nil {
			return err
		}
		log.Info("Расширения созданы")
	}

	log.Info("Создание таблиц: users, wishlists, items, reservations, contributions")
	if err := db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Wishlist{},
		&models.Item{},
		&models.Reservation{},
		&models.Contribution{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Таблицы созданы")

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := exec(ctx, db, log, []step{{"triggers error", `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_wishlists_updated ON wishlists;
CREATE TRIGGER trg_wishlists_updated BEFORE UPDATE ON wishlists
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_items_updated ON items;
CREATE TRIGGER trg_items_updated BEFORE UPDATE ON items
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`}}); err != nil {
			return err
		}
		log.Info("Триггеры созданы")
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := exec(ctx, db, log, []step{
			{"chk wishlists.title", `
ALTER TABLE wishlists
	DROP CONSTRAINT IF EXISTS chk_wishlists_title_not_blank,
	ADD CONSTRAINT chk_wishlists_title_not_blank
	CHECK (btrim(title) <> '');
`},
			{"chk items.title", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_title_not_blank,
	ADD CONSTRAINT chk_items_title_not_blank
	CHECK (btrim(title) <> '');
`},
			// Цена, если задана, строго положительная
			{"chk items.price", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_price_positive,
	ADD CONSTRAINT chk_items_price_positive
	CHECK (price_cents IS NULL OR price_cents > 0);
`},
			{"chk items.currency", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_currency_code,
	ADD CONSTRAINT chk_items_currency_code
	CHECK (char_length(currency_code) = 3);
`},
			{"chk items.priority", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_priority_range,
	ADD CONSTRAINT chk_items_priority_range
	CHECK (priority BETWEEN 0 AND 2);
`},
			// Сбор возможен только при заданной цене
			{"chk items.pooling", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_pooling_has_price,
	ADD CONSTRAINT chk_items_pooling_has_price
	CHECK (NOT is_pooling OR price_cents IS NOT NULL);
`},
			// Собранная сумма никогда не превышает цену
			{"chk items.contributed", `
ALTER TABLE items
	DROP CONSTRAINT IF EXISTS chk_items_contributed_cap,
	ADD CONSTRAINT chk_items_contributed_cap
	CHECK (contributed_cents >= 0 AND (price_cents IS NULL OR contributed_cents <= price_cents));
`},
			{"chk contributions.amount", `
ALTER TABLE contributions
	DROP CONSTRAINT IF EXISTS chk_contributions_amount_gt_zero,
	ADD CONSTRAINT chk_contributions_amount_gt_zero
	CHECK (amount_cents > 0);
`},
		}); err != nil {
			return err
		}
		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов и уникальностей")
		if err := exec(ctx, db, log, []step{
			{"ux users email", `CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (lower(email));`},
			{"ux users username", `CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users (username);`},
			{"ux wishlists slug", `CREATE UNIQUE INDEX IF NOT EXISTS ux_wishlists_slug ON wishlists (slug);`},
			// Не больше одной активной резервации на позицию
			{"ux reservations item", `CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_item ON reservations (item_id);`},
			{"ix items wishlist_created", `CREATE INDEX IF NOT EXISTS ix_items_wishlist_created ON items (wishlist_id, created_at);`},
			{"ix wishlists owner_created", `CREATE INDEX IF NOT EXISTS ix_wishlists_owner_created ON wishlists (owner_id, created_at DESC);`},
		}); err != nil {
			return err
		}
		log.Info("Индексы созданы")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")
		if err := exec(ctx, db, log, []step{
			{"fk wishlists.owner_id", `
ALTER TABLE wishlists
  DROP CONSTRAINT IF EXISTS fk_wishlists_owner,
  ADD CONSTRAINT fk_wishlists_owner
    FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE;
`},
			{"fk items.wishlist_id", `
ALTER TABLE items
  DROP CONSTRAINT IF EXISTS fk_items_wishlist,
  ADD CONSTRAINT fk_items_wishlist
    FOREIGN KEY (wishlist_id) REFERENCES wishlists(id) ON DELETE CASCADE;
`},
			{"fk reservations.item_id", `
ALTER TABLE reservations
  DROP CONSTRAINT IF EXISTS fk_reservations_item,
  ADD CONSTRAINT fk_reservations_item
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE;
`},
			{"fk contributions.item_id", `
ALTER TABLE contributions
  DROP CONSTRAINT IF EXISTS fk_contributions_item,
  ADD CONSTRAINT fk_contributions_item
    FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE;
`},
		}); err != nil {
			return err
		}
		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы вишлистов успешно завершена")
	return nil
}
