package infra

import (
	"fmt"

	"cajapos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the postgres audit store, sizes the pool and migrates the
// schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open wraps gorm.Open with the project defaults. Tests use it with the sqlite
// dialector.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

// RunMigrations creates or updates every table and then applies the indexes
// AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Turno{},
		&model.MovimientoCaja{},
		&model.Venta{},
		&model.VentaItem{},
		&model.Arqueo{},
		&model.MovimientoStock{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL. Both statements are valid on
// postgres and sqlite.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// one arqueo per (fecha, turno)
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_arqueos_fecha_turno
		    ON arqueos (fecha, turno_id)`,
		// at most one void credit per (venta, producto)
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_movstock_credito_anulacion
		    ON movimientos_stock (venta_id, producto_id)
		    WHERE tipo = 'ENTRADA' AND venta_id IS NOT NULL`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
