package authhttp

import "net/http"

// APIHandler returns a handler serving the verification endpoints. It is
// intended to be mounted under the host's mux at any prefix.
func (s *Service) APIHandler() http.Handler {
	if s == nil || s.svc == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serverErr(w) })
	}

	mux := http.NewServeMux()
	mux.Handle("POST /auth/phone/send", http.HandlerFunc(s.handlePhoneSendPOST))
	mux.Handle("POST /auth/phone/verify", http.HandlerFunc(s.handlePhoneVerifyPOST))
	return mux
}
