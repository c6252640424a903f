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
		requests, err := app.FindCollectionByNameOrId("account_requests")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("approval_messages")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "request",
				CollectionId:  requests.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			// empty for superuser messages
			&core.RelationField{
				Name:         "author",
				CollectionId: users.Id,
				MaxSelect:    1,
			},
			&core.BoolField{Name: "from_admin"},
			&core.TextField{Name: "body", Required: true, Max: 5000},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_approval_messages_request", false, "request", "")

		view := "request.user = @request.auth.id || (@request.auth.role = 'admin' && @request.auth.status = 'active')"
		collection.ListRule = types.Pointer(view)
		collection.ViewRule = types.Pointer(view)
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = nil

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("approval_messages")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
