package validators

import "go.mongodb.org/mongo-driver/bson"

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"court_id",
			"date",
			"start_time",
			"end_time",
			"price",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"court_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  "^[0-9]{4}-[0-9]{2}-[0-9]{2}$",
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"price": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"available",
					"held",
					"booked",
				},
			},

			"held_by": bson.M{
				"bsonType": "string",
			},

			"hold_token": bson.M{
				"bsonType": "string",
			},

			"hold_expires_at": bson.M{
				"bsonType": "date",
			},

			"booking_id": bson.M{
				"bsonType": "string",
			},

			"booked_by": bson.M{
				"bsonType": "string",
			},
		},
	},
}
