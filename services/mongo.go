package services

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func mongoReturnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func mongoFindSortedByUpdatedAtDesc() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
}
