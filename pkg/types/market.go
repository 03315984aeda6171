package types

// Topic is a top-level market on the venue. Binary outcomes live in
// ChildList; multi-outcome events carry one child per candidate.
type Topic struct {
	TopicID   int64     `json:"topicId"`
	Title     string    `json:"title"`
	ChildList []Outcome `json:"childList"`
}

// Outcome is one tradable binary question inside a topic.
type Outcome struct {
	TopicID     int64  `json:"topicId"`
	Title       string `json:"title"`
	YesTokenID  string `json:"yesPos"`
	NoTokenID   string `json:"noPos"`
	QuestionID  string `json:"questionId"`
	ConditionID string `json:"conditionId"`
}

// Position is one holding from the venue portfolio listing. Quantities
// are decimal strings; FrozenQuantity is locked under resting orders.
type Position struct {
	TopicID        int64  `json:"topicId"`
	ParentTopicID  int64  `json:"mutilTopicId"`
	TopicTitle     string `json:"topicTitle"`
	OutcomeTitle   string `json:"childTopicTitle"`
	OutcomeSide    int    `json:"outcomeSide"` // 1 = YES, 2 = NO
	TokenID        string `json:"tokenId"`
	Quantity       string `json:"tokenAmount"`
	FrozenQuantity string `json:"tokenFrozenAmount"`
	LastPrice      string `json:"lastPrice"`
}

// IsYes reports whether the position holds YES shares.
func (p *Position) IsYes() bool {
	return p.OutcomeSide == 1
}
