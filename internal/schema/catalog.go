package schema

// Canonical names of the catalog fields the pipeline treats specially.
const (
	FieldID          = "ID"
	FieldName        = "name"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldUnitPrice   = "unitPrice"
	FieldMainImage   = "mainImg"
)

// CatalogFields is the default product-catalog schema.
var CatalogFields = []Field{
	{
		Name:    FieldID,
		Aliases: []string{"id", "sku", "product id", "product_id", "item id", "item number", "handle"},
	},
	{
		Name:      FieldName,
		Aliases:   []string{"product name", "title", "product title", "item name", "product"},
		Essential: true,
		Guidance: &Guidance{
			Description: "Every product needs a display name",
			Solution:    "Add a 'name' column (or 'Product Name' / 'Title') with a value for each row",
		},
	},
	{
		Name:    FieldDescription,
		Aliases: []string{"desc", "product description", "details", "body", "body html"},
	},
	{
		Name:      FieldCategory,
		Aliases:   []string{"categories", "product category", "collection", "type", "product type"},
		Essential: true,
		Guidance: &Guidance{
			Description: "Products are grouped into store collections by category",
			Solution:    "Add a 'category' column naming the collection each product belongs to",
		},
	},
	{
		Name:      FieldUnitPrice,
		Aliases:   []string{"price", "unit price", "Unit Price ($)", "retail price", "sale price", "cost"},
		Flags:     []NormalizationFlag{FlagStrictAlnum},
		Essential: true,
	},
	{
		Name:      FieldMainImage,
		Aliases:   []string{"image", "image url", "image src", "main image", "photo", "picture", "img"},
		Essential: true,
		Guidance: &Guidance{
			Description: "The main image column tells the importer where each product photo lives",
			Solution:    "Add a 'mainImg' column with an https URL, a media-library reference or a local file name",
		},
	},
	{
		Name:    "brand",
		Aliases: []string{"vendor", "manufacturer", "brand name"},
	},
	{
		Name:    "inventory",
		Aliases: []string{"stock", "quantity", "qty", "inventory quantity", "on hand"},
	},
	{
		Name:    "weight",
		Aliases: []string{"weight (g)", "weight grams", "item weight"},
		Flags:   []NormalizationFlag{FlagSeparatorsOnly},
	},
	{
		Name:    "ribbon",
		Aliases: []string{"badge", "label"},
	},
}
