package validators

import "go.mongodb.org/mongo-driver/bson"

var WaitingListValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"slot_id",
			"user_id",
			"requested_at",
			"position",
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

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"requested_at": bson.M{
				"bsonType": "date",
			},

			"position": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"seq": bson.M{
				"bsonType": "long",
			},
		},
	},
}
