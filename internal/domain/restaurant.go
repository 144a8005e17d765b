package domain

import "time"

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	CoverImg string `json:"cover_img,omitempty"`
}

type Restaurant struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CoverImg      string     `json:"cover_img,omitempty"`
	Address       string     `json:"address"`
	CategoryID    *string    `json:"category_id,omitempty"`
	OwnerID       string     `json:"owner_id"`
	IsPromoted    bool       `json:"is_promoted"`
	PromotedUntil *time.Time `json:"promoted_until,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DishChoice is one selectable variant inside a dish option. At most one
// choice per option carries its own surcharge.
type DishChoice struct {
	Name  string   `json:"name"`
	Extra *float64 `json:"extra,omitempty"`
}

// DishOption either adds a flat surcharge or offers a set of choices.
type DishOption struct {
	Name    string       `json:"name"`
	Extra   *float64     `json:"extra,omitempty"`
	Choices []DishChoice `json:"choices,omitempty"`
}

type Dish struct {
	ID           string       `json:"id"`
	RestaurantID string       `json:"restaurant_id"`
	Name         string       `json:"name"`
	Price        float64      `json:"price"`
	Photo        string       `json:"photo,omitempty"`
	Description  string       `json:"description"`
	Options      []DishOption `json:"options,omitempty"`
}

// Option returns the declared option with the given name, if any.
func (d *Dish) Option(name string) *DishOption {
	for i := range d.Options {
		if d.Options[i].Name == name {
			return &d.Options[i]
		}
	}
	return nil
}

// Choice returns the named choice within the option, if any.
func (o *DishOption) Choice(name string) *DishChoice {
	for i := range o.Choices {
		if o.Choices[i].Name == name {
			return &o.Choices[i]
		}
	}
	return nil
}
