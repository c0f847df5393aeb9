package models

// CardType classifies a card and determines which choices it offers. The
// set is open: decks may ship types this server has never seen.
type CardType string

const (
	CardDoOrDrink    CardType = "do_or_drink"
	CardTruthOrDrink CardType = "truth_or_drink"
)

// Card is one prompt in a game's deck, immutable once loaded. ImagePath is
// relative to the asset-serving prefix; resolving it is the asset host's
// concern.
type Card struct {
	ID           int      `json:"id"`
	Position     int      `json:"position"`
	ImagePath    string   `json:"image_path"`
	Type         CardType `json:"card_type"`
	DrinkPoints  int      `json:"drink_points"`
	ActionPoints int      `json:"action_points"`
}

// ActionChoice returns the non-drink alternative for this card type.
// Unknown types deliberately play as do_or_drink rather than erroring, so a
// deck with new card types stays playable on older servers.
func (t CardType) ActionChoice() Choice {
	if t == CardTruthOrDrink {
		return ChoiceTruth
	}
	return ChoiceDo
}

// ChoiceSet returns every choice valid for this card type.
func (t CardType) ChoiceSet(allowSkip bool) []Choice {
	set := []Choice{ChoiceDrink, t.ActionChoice()}
	if allowSkip {
		set = append(set, ChoiceSkip)
	}
	return set
}
