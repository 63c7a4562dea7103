package persistence

import "github.com/marketlevy/backend/internal/infrastructure/persistence/models"

// AllModels lists every table the levy engine reads or writes. Production
// schemas come from the SQL migrations; this list backs AutoMigrate in tests
// and local development.
func AllModels() []any {
	return []any{
		&models.MarketModel{},
		&models.TraderModel{},
		&models.TraderBuildingTypeModel{},
		&models.OfficerModel{},
		&models.LevySetupModel{},
		&models.LevyTransactionModel{},
		&models.AuditLogModel{},
	}
}
