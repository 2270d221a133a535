package store

var TimestampArray = timestampArray
