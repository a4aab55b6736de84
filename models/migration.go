package models

import (
	"log"

	"github.com/stive2025/collapi-sub001/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &User{}, &AccessToken{},
		&Client{}, &Credit{}, &Campaign{},
		&Management{}, &CollectionCall{},
		&Agreement{}, &AgreementInstallment{}, &Condonation{}, &CollectionExpense{},
		&FeedNotification{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
