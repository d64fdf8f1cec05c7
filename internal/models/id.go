package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewID returns a new 24 character hex object id
func NewID() string {
	return bson.NewObjectID().Hex()
}

// ValidID reports whether s is a well-formed object id
func ValidID(s string) bool {
	_, err := bson.ObjectIDFromHex(s)
	return err == nil
}
