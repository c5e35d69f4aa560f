package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "products"

// indexMapping is the products index definition. Text fields are analyzed
// for full-text matching, every other scalar is an exact-match keyword and
// createdAt is a sortable date.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":          { "type": "keyword" },
      "title":       { "type": "text" },
      "description": { "type": "text" },
      "price":       { "type": "float" },
      "category":    { "type": "keyword" },
      "condition":   { "type": "keyword" },
      "location":    { "type": "keyword" },
      "imageUrl":    { "type": "keyword" },
      "source":      { "type": "keyword" },
      "url":         { "type": "keyword" },
      "createdAt":   { "type": "date" }
    }
  }
}`
