package push

import "strings"

var expoPrefixes = []string{"ExponentPushToken[", "ExpoPushToken["}

// fcmMinLength is the length a non-Expo token must exceed to count as FCM-like.
const fcmMinLength = 20

type Kind int

const (
	KindUnknown Kind = iota
	KindExpo
	KindFCM
)

func (k Kind) String() string {
	switch k {
	case KindExpo:
		return "expo"
	case KindFCM:
		return "fcm"
	default:
		return "unknown"
	}
}

// Classification is advisory metadata. It never decides whether a token is
// dispatched; the gateway accepts every format.
type Classification struct {
	IsExpo    bool `json:"is_expo"`
	IsFCMLike bool `json:"is_fcm"`
}

func (c Classification) Kind() Kind {
	switch {
	case c.IsExpo:
		return KindExpo
	case c.IsFCMLike:
		return KindFCM
	default:
		return KindUnknown
	}
}

func Classify(token string) Classification {
	for _, prefix := range expoPrefixes {
		if strings.HasPrefix(token, prefix) {
			return Classification{IsExpo: true}
		}
	}
	return Classification{IsFCMLike: len(token) > fcmMinLength}
}

// ClassifyAll fills in the Classification of every destination.
func ClassifyAll(dests []Destination) []Destination {
	out := make([]Destination, len(dests))
	for i, d := range dests {
		d.Classification = Classify(d.Token)
		out[i] = d
	}
	return out
}
