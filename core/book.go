package core

import (
	"errors"
	"fmt"
	"math"
)

// MaxRating is the upper bound of a Book rating. Ratings come in half steps.
const MaxRating = 5.0

// Book is a catalog entry as the remote API represents it.
type Book struct {
	ID                BookIDString
	Title             string
	Author            string
	Category          string
	Rating            float64
	TotalQuantity     int
	AvailableQuantity int
	ImageURL          string
	Description       string
	Owner             BorrowerIDString
}

// ValidateRating accepts 0 to 5 in steps of 0.5.
func ValidateRating(rating float64) error {
	if rating < 0 || rating > MaxRating || math.Mod(rating*2, 1) != 0 {
		return errors.Join(ErrInvalidBook, fmt.Errorf("rating %v must be between 0 and %v in half steps", rating, MaxRating))
	}

	return nil
}

// Validate checks catalog input. The ID may be empty for books not created yet.
func (b Book) Validate() error {
	switch {
	case b.Title == "":
		return errors.Join(ErrInvalidBook, errors.New("title is required"))
	case b.Author == "":
		return errors.Join(ErrInvalidBook, errors.New("author is required"))
	case b.TotalQuantity < 0:
		return errors.Join(ErrInvalidBook, errors.New("quantity must not be negative"))
	case b.AvailableQuantity < 0 || b.AvailableQuantity > b.TotalQuantity:
		return errors.Join(ErrInvalidBook, errors.New("available quantity must be between 0 and quantity"))
	}

	return ValidateRating(b.Rating)
}
