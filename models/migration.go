package models

import (
	"log"

	"github.com/gainwell-gia/s2t_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&SourceTable{}, &SourceColumn{},
		&TargetSchema{}, &TargetField{},
		&FieldMapping{}, &AISuggestion{},
		&MappingTemplate{}, &MappingSession{},
		&Configuration{}, &ConfigurationHistory{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
