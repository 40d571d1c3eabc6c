// Package jwt signs and verifies the HS256 access tokens presented to the VTN.
//
// Service issues Claims tokens (registered claims plus OpenADR roles) and
// verifies any JSON claims shape. The middleware extracts a token, verifies
// it and stores the Claims in the request context, where handlers read them
// with GetClaims. The token subject is the client identity the notifier keys
// channels by.
//
//	svc, err := jwt.New(jwt.Config{SigningKey: key})
//	if err != nil {
//		return err
//	}
//	token, _ := svc.Issue("ven-17", jwt.Role{Role: jwt.RoleVEN, ID: "ven-17"})
//
//	r.With(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
//		Service:   svc,
//		Extractor: jwt.ChainExtractors(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("access_token")),
//	})).Get("/notifiers/websocket", upgrade)
//
// Errors are sentinel values comparable with errors.Is.
package jwt
