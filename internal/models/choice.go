package models

// Choice is a player's per-turn selection. Which choices are valid depends
// on the current card's type; see CardType.ChoiceSet.
type Choice string

const (
	ChoiceDrink Choice = "drink"
	ChoiceDo    Choice = "do"
	ChoiceTruth Choice = "truth"
	ChoiceSkip  Choice = "skip"
)

// ValidFor reports whether the choice belongs to the card type's choice set.
func (c Choice) ValidFor(t CardType, allowSkip bool) bool {
	for _, v := range t.ChoiceSet(allowSkip) {
		if v == c {
			return true
		}
	}
	return false
}
