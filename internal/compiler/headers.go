package compiler

import "fmt"

const (
	headerSubInfo     = "Subscription-UserInfo"
	headerDisposition = "Content-Disposition"
)

func headers(cfg *Config, subInfo string) map[string]string {
	h := map[string]string{}
	if subInfo != "" {
		h[headerSubInfo] = subInfo
	}
	if name := cfg.Filename(); name != "" {
		h[headerDisposition] = ContentDisposition(name)
	}
	return h
}

// ContentDisposition builds the attachment header. Both parameters carry
// name unencoded.
func ContentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=utf-8''%s", name, name)
}
