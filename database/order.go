package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case ASC:
		return ASC, nil
	case DESC:
		return DESC, nil
	}
	return "", fmt.Errorf("invalid sort direction %q", s)
}

// Order is one sort condition: a property and a direction.
type Order struct {
	Property  string
	Direction Direction
}

func NewOrder(property string, direction Direction) (Order, error) {
	if strings.TrimSpace(property) == "" {
		return Order{}, errors.New("order property must not be empty")
	}
	if direction != ASC && direction != DESC {
		return Order{}, fmt.Errorf("invalid sort direction %q", direction)
	}
	return Order{Property: strings.TrimSpace(property), Direction: direction}, nil
}

func Asc(property string) Order  { return Order{Property: property, Direction: ASC} }
func Desc(property string) Order { return Order{Property: property, Direction: DESC} }

func (o Order) String() string {
	return o.Property + " " + string(o.Direction)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// OrderBy renders an ORDER BY clause. Properties are interpolated into SQL,
// so anything that is not a plain identifier is rejected.
func OrderBy(orders ...Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if !identifier.MatchString(o.Property) {
			return "", fmt.Errorf("invalid order property %q", o.Property)
		}
		if o.Direction != ASC && o.Direction != DESC {
			return "", fmt.Errorf("invalid sort direction %q", o.Direction)
		}
		parts = append(parts, o.String())
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// ParseOrders reads a comma separated sort list such as "index,-name".
// A leading '-' sorts descending.
func ParseOrders(s string) ([]Order, error) {
	var orders []Order
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		direction := ASC
		if strings.HasPrefix(field, "-") {
			direction = DESC
			field = strings.TrimPrefix(field, "-")
		}
		o, err := NewOrder(field, direction)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// mapOrders translates public property names to column names using columns.
func mapOrders(columns map[string]string, orders []Order) ([]Order, error) {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		col, ok := columns[o.Property]
		if !ok {
			return nil, fmt.Errorf("cannot sort by %q", o.Property)
		}
		out = append(out, Order{Property: col, Direction: o.Direction})
	}
	return out, nil
}
