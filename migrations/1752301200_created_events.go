package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")
		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true, Max: 300},
			&core.TextField{Name: "description", Max: 5000},
			&core.TextField{Name: "location", Max: 300},
			&core.DateField{Name: "start", Required: true},
			&core.DateField{Name: "end", Required: true},
			&core.BoolField{Name: "all_day"},
			// 0 means unlimited
			&core.NumberField{Name: "capacity", OnlyInt: true, Min: types.Pointer(0.0)},
			// decimal string, empty for free events
			&core.TextField{Name: "fee", Max: 20, Pattern: `^\d+(\.\d{1,2})?$`},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"draft", "published", "cancelled"},
				MaxSelect: 1,
				Required:  true,
			},
			// RFC 5545 RRULE body, validated by the event save hook
			&core.TextField{Name: "rrule", Max: 500},
			&core.JSONField{Name: "exdates", MaxSize: 10000},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_events_status_start", false, "status, start", "")

		admin := "@request.auth.role = 'admin' && @request.auth.status = 'active'"
		// published events are visible to every signed in account, pending
		// members included; drafts stay admin only
		read := "@request.auth.id != '' && (status = 'published' || (" + admin + "))"
		collection.ListRule = types.Pointer(read)
		collection.ViewRule = types.Pointer(read)
		collection.CreateRule = types.Pointer(admin)
		collection.UpdateRule = types.Pointer(admin)
		collection.DeleteRule = types.Pointer(admin)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
