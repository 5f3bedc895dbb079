package request

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validator 讓 dto 為 "<欄位>.<規則>" 指定對外的錯誤訊息
type Validator interface {
	GetMessages() ValidatorMessages
}

type ValidatorMessages map[string]string

var reg = regexp.MustCompile(`\[\d+\]`)

// Message 回傳第一個有自訂訊息的驗證錯誤；沒有就 ok=false
func Message(request interface{}, err error) (string, bool) {
	v, isValidator := request.(Validator)
	if !isValidator {
		return "", false
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return "", false
	}
	messages := v.GetMessages()
	for _, fe := range errs {
		field := reg.ReplaceAllString(fe.Field(), ".*")
		if message, exist := messages[field+"."+fe.Tag()]; exist {
			return message, true
		}
	}
	return "", false
}
