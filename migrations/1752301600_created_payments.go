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
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("payments")
		collection.Fields.Add(
			// no cascade: payment history survives an event deletion
			&core.RelationField{
				Name:         "event",
				CollectionId: events.Id,
				MaxSelect:    1,
			},
			&core.RelationField{
				Name:          "user",
				CollectionId:  users.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			// decimal string
			&core.TextField{Name: "amount", Required: true, Max: 20},
			&core.TextField{Name: "currency", Max: 3},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"pending", "completed", "cancelled", "expired", "failed"},
				MaxSelect: 1,
				Required:  true,
			},
			// bill number shown to the member and sent to the gateway
			&core.TextField{Name: "reference", Required: true, Max: 30},
			&core.TextField{Name: "qr_code", Max: 2000},
			// per-attendee charge rows frozen at session open
			&core.JSONField{Name: "breakdown", MaxSize: 50000},
			&core.DateField{Name: "expires_at"},
			&core.DateField{Name: "completed_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_payments_reference", true, "reference", "")
		collection.AddIndex("idx_payments_user_event", false, "user, event", "")
		collection.AddIndex("idx_payments_status_expires", false, "status, expires_at", "")

		view := "user = @request.auth.id || (@request.auth.role = 'admin' && @request.auth.status = 'active')"
		collection.ListRule = types.Pointer(view)
		collection.ViewRule = types.Pointer(view)
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = nil

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
