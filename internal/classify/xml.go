package classify

import (
	"encoding/xml"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3sig/errors"
)

// xmlError is the body S3 returns with a failed request.
type xmlError struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
	HostID    string   `xml:"HostId"`
}

// ParseXMLError decodes an <Error> document.
func ParseXMLError(body []byte) (*errors.ResponseError, error) {
	var e xmlError
	if err := xml.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrMalformedResponse, err)
	}
	return &errors.ResponseError{
		Code:      errors.ErrorCode(e.Code),
		Message:   e.Message,
		Resource:  e.Resource,
		RequestID: e.RequestID,
		HostID:    e.HostID,
	}, nil
}
