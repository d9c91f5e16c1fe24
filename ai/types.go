package ai

// EntityTypes defines the valid categories for extracted entities.
// These types are used by entity extractors to classify graph nodes
// pulled out of document fragments.
var EntityTypes = []string{
	"concept",
	"date",
	"document",
	"equation",
	"event",
	"location",
	"material",
	"method",
	"metric",
	"organization",
	"person",
	"process",
	"product",
	"software",
	"technology",
	"unit",
}
