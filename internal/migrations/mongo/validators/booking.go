package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slot_id",
			"court_id",
			"user_id",
			"start_time",
			"end_time",
			"price",
			"status",
			"payment_status",
			"reference",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"court_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
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
					"upcoming",
					"completed",
					"cancelled",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"paid",
					"refunded",
				},
			},

			"reference": bson.M{
				"bsonType": "string",
				"pattern":  "^BKNG[0-9A-F]{8}$",
			},

			"payment_reference": bson.M{
				"bsonType": "string",
			},

			"promoted_from": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"cancelled_at": bson.M{
				"bsonType": "date",
			},

			"completed_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
