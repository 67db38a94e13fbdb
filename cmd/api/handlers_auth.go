package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drcartoon/cartoonbox/internal/auth"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/internal/middleware"
)

const stateCookie = "oauth_state"

// login starts the Google sign-in flow
func (api *API) login(c *gin.Context) {
	state, err := auth.NewState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sign-in"})
		return
	}

	// State round-trips through a short-lived cookie
	c.SetCookie(stateCookie, state, 300, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, api.resolver.AuthURL(state))
}

// callback completes the Google sign-in flow: the code is exchanged, the
// user record created or merged, and a session token issued.
func (api *API) callback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sign-in state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	sess, err := api.resolver.Resolve(c.Request.Context(), code)
	if err != nil {
		api.log.WithError(err).Error("Sign-in resolution failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign-in failed"})
		return
	}

	if err := api.service.ResolveSignIn(c.Request.Context(), sess.UID, sess.Profile); err != nil {
		api.log.WithUserID(sess.UID).WithError(err).Error("Failed to persist sign-in")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sign-in could not be saved"})
		return
	}

	token, err := middleware.GenerateToken(sess, api.authCfg.SessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session"})
		return
	}

	metrics.SignInsTotal.Inc()
	c.SetCookie("session", token, int(api.authCfg.SessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"uid":        sess.UID,
			"email":      sess.Profile.Email,
			"name":       sess.Profile.DisplayName,
			"avatar_url": sess.Profile.AvatarURL,
		},
	})
}

// me returns the signed-in user's profile
func (api *API) me(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	user, err := api.store.GetUser(c.Request.Context(), sess.UID)
	if err != nil {
		// The token is the source of truth when the store lags behind.
		c.JSON(http.StatusOK, gin.H{
			"uid":        sess.UID,
			"email":      sess.Profile.Email,
			"name":       sess.Profile.DisplayName,
			"avatar_url": sess.Profile.AvatarURL,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":        user.UID,
		"email":      user.Email,
		"name":       user.DisplayName,
		"avatar_url": user.AvatarURL,
		"last_login": user.LastLogin,
	})
}

// logout clears the session cookie. Tokens held elsewhere simply expire.
func (api *API) logout(c *gin.Context) {
	c.SetCookie("session", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
