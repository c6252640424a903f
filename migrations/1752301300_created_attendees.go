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
		family, err := app.FindCollectionByNameOrId("family_members")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("attendees")
		collection.Fields.Add(
			&core.RelationField{
				Name:          "event",
				CollectionId:  events.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			&core.RelationField{
				Name:          "user",
				CollectionId:  users.Id,
				MaxSelect:     1,
				Required:      true,
				CascadeDelete: true,
			},
			// empty for the member's own RSVP
			&core.RelationField{
				Name:          "family_member",
				CollectionId:  family.Id,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.TextField{Name: "display_name", Max: 200},
			&core.SelectField{
				Name:      "status",
				Values:    []string{"going", "maybe", "not_going", "waitlisted"},
				MaxSelect: 1,
				Required:  true,
			},
			// 1-based, 0 for everyone off the waitlist
			&core.NumberField{Name: "waitlist_position", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.BoolField{Name: "paid"},
			&core.DateField{Name: "promoted_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// one record per person per event
		collection.AddIndex("idx_attendees_event_user_family", true, "event, user, family_member", "")
		collection.AddIndex("idx_attendees_event_status", false, "event, status", "")

		member := "@request.auth.status = 'active'"
		admin := "@request.auth.role = 'admin' && @request.auth.status = 'active'"
		collection.ListRule = types.Pointer(member)
		collection.ViewRule = types.Pointer(member)
		collection.CreateRule = types.Pointer(admin)
		collection.UpdateRule = types.Pointer(admin)
		collection.DeleteRule = types.Pointer(admin)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("attendees")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
