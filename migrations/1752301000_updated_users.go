package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Extends the auth collection with the membership workflow fields. New
// accounts start pending and only become active through an approval
// decision.
func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.Add(
			&core.SelectField{
				Name:      "status",
				Values:    []string{"pending", "active", "rejected"},
				MaxSelect: 1,
			},
			&core.SelectField{
				Name:      "role",
				Values:    []string{"member", "admin"},
				MaxSelect: 1,
			},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection.Fields.RemoveByName("status")
		collection.Fields.RemoveByName("role")

		return app.Save(collection)
	})
}
