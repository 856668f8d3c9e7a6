package v1

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/ghoul-sol/treasure-marketplace/errcode"
	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	types "github.com/ghoul-sol/treasure-marketplace/types/v1"
)

func parseAddress(s string) (common.Address, *errcode.Err) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errcode.NewCustomErr("invalid address: " + s)
	}
	return common.HexToAddress(s), nil
}

// parseOptionalAddress treats empty as the zero address sentinel.
func parseOptionalAddress(s string) (common.Address, *errcode.Err) {
	if s == "" {
		return common.Address{}, nil
	}
	return parseAddress(s)
}

func parsePrice(s string) (*big.Int, *errcode.Err) {
	price, ok := new(big.Int).SetString(s, 10)
	if !ok || price.Sign() < 0 {
		return nil, errcode.NewCustomErr("invalid price: " + s)
	}
	return price, nil
}

func parseTokenID(s string) (*big.Int, *errcode.Err) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, errcode.NewCustomErr("invalid token id: " + s)
	}
	return id, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func offerResp(offer marketplace.Offer) types.OfferResp {
	return types.OfferResp{
		Quantity:       offer.Quantity,
		PricePerItem:   offer.PricePerItem.String(),
		ExpirationTime: offer.ExpirationTime,
		PaymentToken:   offer.PaymentToken.Hex(),
	}
}
