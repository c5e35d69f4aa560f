package main

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Listing is the product document the search service ingests.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"imageUrl"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

// maxListingAge bounds how far back generated createdAt values go.
const maxListingAge = 30 * 24 * time.Hour

const placeholderImage = "https://via.placeholder.com/300x200/%s/%s?text=%s"

var catalog = []Listing{
	// Electronics
	{Title: "iPhone 12 Pro", Description: "Excellent condition, barely used, includes charger", Price: 599, Category: "electronics", Condition: "excellent", Location: "Paris", ImageURL: fmt.Sprintf(placeholderImage, "0066CC", "FFFFFF", "iPhone+12+Pro"), Source: "Leboncoin"},
	{Title: "MacBook Air M1", Description: "Great laptop, 8GB RAM, 256GB SSD", Price: 850, Category: "electronics", Condition: "good", Location: "Lyon", ImageURL: fmt.Sprintf(placeholderImage, "999999", "FFFFFF", "MacBook+Air"), Source: "Vinted"},
	{Title: "Samsung Galaxy S21", Description: "Good condition, small scratch on back", Price: 400, Category: "electronics", Condition: "good", Location: "Marseille", ImageURL: fmt.Sprintf(placeholderImage, "1A1A1A", "FFFFFF", "Galaxy+S21"), Source: "Leboncoin"},
	{Title: `iPad Pro 11"`, Description: "Like new, with Apple Pencil", Price: 650, Category: "electronics", Condition: "excellent", Location: "Toulouse", ImageURL: fmt.Sprintf(placeholderImage, "0066CC", "FFFFFF", "iPad+Pro"), Source: "eBay"},
	{Title: "Sony WH-1000XM4 Headphones", Description: "Noise-cancelling, great sound", Price: 220, Category: "electronics", Condition: "good", Location: "Nice", ImageURL: fmt.Sprintf(placeholderImage, "000000", "FFFFFF", "Sony+Headphones"), Source: "Vinted"},

	// Furniture
	{Title: "IKEA Sofa", Description: "Comfortable 3-seater sofa, gray color", Price: 180, Category: "furniture", Condition: "fair", Location: "Paris", ImageURL: fmt.Sprintf(placeholderImage, "8B4513", "FFFFFF", "IKEA+Sofa"), Source: "Leboncoin"},
	{Title: "Oak Dining Table", Description: "Solid oak, seats 6 people", Price: 300, Category: "furniture", Condition: "good", Location: "Bordeaux", ImageURL: fmt.Sprintf(placeholderImage, "D2691E", "FFFFFF", "Dining+Table"), Source: "Leboncoin"},
	{Title: "Vintage Armchair", Description: "Mid-century design, reupholstered", Price: 250, Category: "furniture", Condition: "excellent", Location: "Lyon", ImageURL: fmt.Sprintf(placeholderImage, "8B4513", "FFFFFF", "Armchair"), Source: "Selency"},
	{Title: "Bookshelf", Description: "Tall white bookshelf, IKEA Billy", Price: 45, Category: "furniture", Condition: "good", Location: "Paris", ImageURL: fmt.Sprintf(placeholderImage, "FFFFFF", "000000", "Bookshelf"), Source: "Leboncoin"},

	// Clothing
	{Title: "Nike Air Max Sneakers", Description: "Size 42, worn a few times", Price: 75, Category: "clothing", Condition: "good", Location: "Paris", ImageURL: fmt.Sprintf(placeholderImage, "FF6B00", "FFFFFF", "Nike+Air+Max"), Source: "Vinted"},
	{Title: "Levi's Jeans", Description: "501 model, size 32/32", Price: 40, Category: "clothing", Condition: "good", Location: "Marseille", ImageURL: fmt.Sprintf(placeholderImage, "0066CC", "FFFFFF", "Levis+Jeans"), Source: "Vinted"},
	{Title: "Leather Jacket", Description: "Black leather, size M", Price: 120, Category: "clothing", Condition: "excellent", Location: "Lyon", ImageURL: fmt.Sprintf(placeholderImage, "000000", "FFFFFF", "Leather+Jacket"), Source: "Vinted"},
	{Title: "Zara Winter Coat", Description: "Women's coat, size S, warm", Price: 60, Category: "clothing", Condition: "good", Location: "Toulouse", ImageURL: fmt.Sprintf(placeholderImage, "8B4513", "FFFFFF", "Winter+Coat"), Source: "Vinted"},

	// Sports
	{Title: "Mountain Bike", Description: "Trek 29er, 21 speeds, excellent condition", Price: 450, Category: "sports", Condition: "excellent", Location: "Grenoble", ImageURL: fmt.Sprintf(placeholderImage, "FF0000", "FFFFFF", "Mountain+Bike"), Source: "Leboncoin"},
	{Title: "Tennis Racket", Description: "Wilson Pro Staff, barely used", Price: 90, Category: "sports", Condition: "excellent", Location: "Paris", ImageURL: fmt.Sprintf(placeholderImage, "FFFF00", "000000", "Tennis+Racket"), Source: "Leboncoin"},
	{Title: "Yoga Mat", Description: "Thick yoga mat, purple color", Price: 20, Category: "sports", Condition: "good", Location: "Nice", ImageURL: fmt.Sprintf(placeholderImage, "800080", "FFFFFF", "Yoga+Mat"), Source: "Vinted"},

	// Books
	{Title: "Harry Potter Collection", Description: "Complete series, French version", Price: 45, Category: "books", Condition: "good", Location: "Paris", ImageURL: fmt.Sprintf(placeholderImage, "8B0000", "FFFFFF", "Harry+Potter"), Source: "Leboncoin"},
	{Title: "Programming Books Bundle", Description: "JavaScript, Python, React - 5 books", Price: 60, Category: "books", Condition: "excellent", Location: "Lyon", ImageURL: fmt.Sprintf(placeholderImage, "0066CC", "FFFFFF", "Programming+Books"), Source: "Leboncoin"},

	// Home & Garden
	{Title: "Coffee Machine Nespresso", Description: "Delonghi model, works perfectly", Price: 80, Category: "home", Condition: "good", Location: "Bordeaux", ImageURL: fmt.Sprintf(placeholderImage, "000000", "FFFFFF", "Nespresso"), Source: "Leboncoin"},
	{Title: "Garden Tools Set", Description: "Complete set with rake, shovel, etc.", Price: 35, Category: "home", Condition: "fair", Location: "Toulouse", ImageURL: fmt.Sprintf(placeholderImage, "228B22", "FFFFFF", "Garden+Tools"), Source: "Leboncoin"},
}

// Generate returns the catalog as listings with ids product-1..product-N,
// a listing URL and a createdAt spread over the 30 days before now.
func Generate(now time.Time, rng *rand.Rand) []Listing {
	out := make([]Listing, len(catalog))
	for i, l := range catalog {
		id := fmt.Sprintf("product-%d", i+1)
		l.ID = id
		l.URL = "https://example.com/" + id
		l.CreatedAt = now.Add(-time.Duration(rng.Int64N(int64(maxListingAge)))).UTC()
		out[i] = l
	}
	return out
}
