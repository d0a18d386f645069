// Package auth provides driven.AccessTokenProvider implementations.
//
// Three acquisition methods are supported:
//
//   - static: a token from configuration or the REPLISYNC_ACCESS_TOKEN environment variable
//   - prompt: a token typed on the terminal, read without echo when possible
//   - oauth: an OAuth2 token refreshed silently from the token store, with an
//     interactive authorisation-code flow when no usable token is stored
package auth
