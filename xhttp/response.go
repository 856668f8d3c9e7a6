package xhttp

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ghoul-sol/treasure-marketplace/errcode"
)

type response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// OkJson writes a success envelope around data.
func OkJson(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, response{
		Code: errcode.CodeOK,
		Msg:  "success",
		Data: data,
	})
}

// Error writes an error envelope. Known *errcode.Err values keep their code;
// anything else is reported as unexpected.
func Error(c *gin.Context, err error) {
	e, ok := err.(*errcode.Err)
	if !ok {
		e = errcode.ErrUnexpected
	}
	c.JSON(http.StatusOK, response{
		Code: e.Code,
		Msg:  e.Msg,
	})
}
