// Package events routes artifact-created storage events to the validator.
// Only "latest" snapshot artifacts are eligible; history entries and any
// other objects are ignored without comment.
package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ObjectRef identifies one created object from a storage event.
type ObjectRef struct {
	Bucket string
	Key    string
}

// s3Notification mirrors the S3 event notification envelope delivered to
// SQS.
type s3Notification struct {
	Records []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseObjectCreated extracts created-object references from a raw event
// body. Non-creation events are skipped. Object keys arrive URL-encoded
// and are decoded here.
func ParseObjectCreated(body []byte) ([]ObjectRef, error) {
	var n s3Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("parsing storage event: %w", err)
	}

	var refs []ObjectRef
	for _, rec := range n.Records {
		if !strings.HasPrefix(rec.EventName, "ObjectCreated") {
			continue
		}
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		refs = append(refs, ObjectRef{Bucket: rec.S3.Bucket.Name, Key: key})
	}
	return refs, nil
}

// EligibleArtifact reports whether an artifact name (relative to the
// processed container) should be routed to the validator: it must live
// under the latest prefix and be a JSON document.
func EligibleArtifact(name, latestPrefix string) bool {
	if latestPrefix == "" {
		latestPrefix = "latest"
	}
	return strings.HasPrefix(name, latestPrefix+"/") && strings.HasSuffix(name, ".json")
}
