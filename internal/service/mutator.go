package service

import (
	"fmt"
	"strings"

	"github.com/Skotchmaster/parts_market/internal/models"
)

// The cart mutators are pure: they never touch the input cart and always
// return a cart with unique part ids and qty >= 1.

func AddItem(cart models.Cart, part models.Part, qty int) (models.Cart, error) {
	if qty <= 0 {
		return cart, fmt.Errorf("qty must be > 0: %w", ErrValidation)
	}
	if strings.TrimSpace(part.ID) == "" {
		return cart, fmt.Errorf("part id required: %w", ErrValidation)
	}

	next := cart
	next.Items = cart.Items.Clone()

	if i := next.Items.Find(part.ID); i >= 0 {
		// first-seen price, name and image win
		next.Items[i].Qty += qty
		return next, nil
	}

	next.Items = append(next.Items, models.LineItem{
		PartID:   part.ID,
		ShopID:   part.ShopID,
		Name:     part.Name,
		Price:    part.Price,
		Qty:      qty,
		ImageURL: part.ImageURL,
	})
	return next, nil
}

func IncreaseQty(cart models.Cart, partID string) (models.Cart, error) {
	i := cart.Items.Find(partID)
	if i < 0 {
		return cart, fmt.Errorf("part %s not in cart: %w", partID, ErrNotFound)
	}
	next := cart
	next.Items = cart.Items.Clone()
	next.Items[i].Qty++
	return next, nil
}

// DecreaseQty removes the line once its qty would reach zero.
func DecreaseQty(cart models.Cart, partID string) (models.Cart, error) {
	i := cart.Items.Find(partID)
	if i < 0 {
		return cart, fmt.Errorf("part %s not in cart: %w", partID, ErrNotFound)
	}
	if cart.Items[i].Qty <= 1 {
		return RemoveItem(cart, partID), nil
	}
	next := cart
	next.Items = cart.Items.Clone()
	next.Items[i].Qty--
	return next, nil
}

func RemoveItem(cart models.Cart, partID string) models.Cart {
	next := cart
	next.Items = make(models.LineItems, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.PartID != partID {
			next.Items = append(next.Items, it)
		}
	}
	return next
}
