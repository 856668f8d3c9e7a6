package types

type SetFeeReq struct {
	Caller                    string `json:"caller"`
	FeeBps                    uint64 `json:"fee_bps"`
	FeeWithCollectionOwnerBps uint64 `json:"fee_with_collection_owner_bps"`
}

type SetFeeRecipientReq struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
}

type SetCollectionOwnerFeeReq struct {
	Caller     string `json:"caller"`
	Collection string `json:"collection"`
	Recipient  string `json:"recipient"`
	FeeBps     uint64 `json:"fee_bps"`
}

type SetTokenApprovalStatusReq struct {
	Caller       string `json:"caller"`
	Collection   string `json:"collection"`
	Status       string `json:"status"` // "not_approved", "erc721", "erc1155"
	PaymentToken string `json:"payment_token"`
}

type GrantRoleReq struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Role    string `json:"role"` // "admin" or "owner"
}

type PauseReq struct {
	Caller string `json:"caller"`
}

type ToggleBiddingReq struct {
	Caller string `json:"caller"`
}
