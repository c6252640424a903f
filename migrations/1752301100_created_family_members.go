package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("family_members")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "account",
				CollectionId:  users.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.NumberField{Name: "birth_year", OnlyInt: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_family_members_account", false, "account", "")

		owner := "account = @request.auth.id && @request.auth.status = 'active'"
		collection.ListRule = types.Pointer(owner)
		collection.ViewRule = types.Pointer(owner)
		collection.CreateRule = types.Pointer(owner)
		collection.UpdateRule = types.Pointer(owner)
		collection.DeleteRule = types.Pointer(owner)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("family_members")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
