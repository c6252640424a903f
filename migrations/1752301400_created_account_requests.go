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

		collection := core.NewBaseCollection("account_requests")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "user",
				CollectionId:  users.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"pending", "needs_clarification", "approved", "rejected"},
				MaxSelect: 1,
				Required:  true,
			},
			&core.TextField{Name: "note", Max: 2000},
			// short human readable code admins can refer to
			&core.TextField{Name: "reference", Max: 30},
			&core.RelationField{
				Name:         "decided_by",
				CollectionId: users.Id,
				MaxSelect:    1,
			},
			&core.DateField{Name: "decided_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_account_requests_user", true, "user", "")
		collection.AddIndex("idx_account_requests_status", false, "status", "")

		view := "user = @request.auth.id || (@request.auth.role = 'admin' && @request.auth.status = 'active')"
		collection.ListRule = types.Pointer(view)
		collection.ViewRule = types.Pointer(view)
		// created by the signup hook, changed only through the approval API
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = nil

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("account_requests")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
