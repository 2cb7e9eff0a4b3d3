package utils

import (
	"fmt"

	"carwash-app/wash-service/internal/models"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSClient шлёт клиентам SMS через Twilio. Доставка best-effort: ошибки
// логируются вызывающей стороной и никуда не пробрасываются.
type SMSClient struct {
	client *twilio.RestClient
	from   string
}

func NewSMSClient(accountSID, authToken, from string) *SMSClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSClient{client: client, from: from}
}

// WashCompleted отправляет сообщение о завершённой мойке. Текст зависит от
// типа: только кузов или кузов+салон.
func (c *SMSClient) WashCompleted(mobile string, washType models.WashType) error {
	var text string
	if washType == models.WashTypeBoth {
		text = "Dear Customer, Today EXT+INT Service has been completed successfully. Thank you for choosing us."
	} else {
		text = "Dear Customer, Today EXT Service has been completed successfully. Thank you for choosing us."
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(mobile)
	params.SetFrom(c.from)
	params.SetBody(text)

	if _, err := c.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}
