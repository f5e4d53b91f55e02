package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type bindMessages map[string]map[string]string

type gameURI struct {
	GameID int64 `uri:"gameID" binding:"required,min=1"`
}

func bindJSON(c *gin.Context, req any, messages bindMessages, fallback string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		message, field := resolveBindError(err, messages, fallback)
		body := gin.H{"error": message}
		if field != "" {
			body["fields"] = map[string]string{field: message}
		}
		c.JSON(http.StatusBadRequest, body)
		return false
	}
	return true
}

func bindGameID(c *gin.Context) (int64, bool) {
	var uri gameURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return 0, false
	}
	return uri.GameID, true
}

func resolveBindError(err error, messages bindMessages, fallback string) (string, string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg, jsonField(verr.Field())
				}
			}
		}
	}
	if fallback != "" {
		return fallback, ""
	}
	return "invalid request", ""
}

var jsonFields = map[string]string{
	"Username": "username",
	"Guess":    "guess",
	"Words":    "words",
}

func jsonField(name string) string {
	if field, ok := jsonFields[name]; ok {
		return field
	}
	return name
}
