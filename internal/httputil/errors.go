package httputil

import (
	"errors"
	"log"
	"net/http"

	"outfitsquare/internal/model"
)

// Domain error codes. The app maps these to localized messages.
const (
	CodeCannotAddSelf        = "CANNOT_ADD_SELF"
	CodeAlreadyFriends       = "ALREADY_FRIENDS"
	CodeRequestAlreadySent   = "REQUEST_ALREADY_SENT"
	CodeRequestNotFound      = "REQUEST_NOT_FOUND"
	CodeRequestNotPending    = "REQUEST_NOT_PENDING"
	CodeNotRequestRecipient  = "NOT_REQUEST_RECIPIENT"
	CodeNotFriends           = "NOT_FRIENDS"
	CodeCannotFollowSelf     = "CANNOT_FOLLOW_SELF"
	CodeAlreadyFollowing     = "ALREADY_FOLLOWING"
	CodeNotFollowing         = "NOT_FOLLOWING"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeNicknameRequired     = "NICKNAME_REQUIRED"
	CodeNicknameTooLong      = "NICKNAME_TOO_LONG"
	CodeInvalidPrivacy       = "INVALID_PRIVACY_SETTING"
	CodePostNotFound         = "POST_NOT_FOUND"
	CodeNotPostOwner         = "NOT_POST_OWNER"
	CodeInvalidPostType      = "INVALID_POST_TYPE"
	CodeOutfitChangeRequired = "OUTFIT_CHANGE_REQUIRED"
	CodeImageRequired        = "IMAGE_REQUIRED"
	CodeDescriptionTooLong   = "DESCRIPTION_TOO_LONG"
	CodeCommentNotFound      = "COMMENT_NOT_FOUND"
	CodeNotCommentOwner      = "NOT_COMMENT_OWNER"
	CodeContentRequired      = "CONTENT_REQUIRED"
	CodeContentTooLong       = "CONTENT_TOO_LONG"
	CodeInvalidScore         = "INVALID_SCORE"
	CodeHistoryNotFound      = "HISTORY_NOT_FOUND"
	CodeImageURIRequired     = "IMAGE_URI_REQUIRED"
	CodeTokenRequired        = "TOKEN_REQUIRED"
	CodeMediaUnavailable     = "MEDIA_UNAVAILABLE"
	CodeInvalidCursor        = "INVALID_CURSOR"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeTokenInvalid         = "TOKEN_INVALID"
)

type domainError struct {
	err    error
	status int
	code   string
}

var domainErrors = []domainError{
	{model.ErrCannotAddSelf, http.StatusBadRequest, CodeCannotAddSelf},
	{model.ErrAlreadyFriends, http.StatusConflict, CodeAlreadyFriends},
	{model.ErrRequestAlreadySent, http.StatusConflict, CodeRequestAlreadySent},
	{model.ErrRequestNotFound, http.StatusNotFound, CodeRequestNotFound},
	{model.ErrRequestNotPending, http.StatusConflict, CodeRequestNotPending},
	{model.ErrNotRequestRecipient, http.StatusForbidden, CodeNotRequestRecipient},
	{model.ErrNotFriends, http.StatusNotFound, CodeNotFriends},

	{model.ErrCannotFollowSelf, http.StatusBadRequest, CodeCannotFollowSelf},
	{model.ErrAlreadyFollowing, http.StatusConflict, CodeAlreadyFollowing},
	{model.ErrNotFollowing, http.StatusNotFound, CodeNotFollowing},

	{model.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
	{model.ErrNicknameRequired, http.StatusBadRequest, CodeNicknameRequired},
	{model.ErrNicknameTooLong, http.StatusBadRequest, CodeNicknameTooLong},
	{model.ErrInvalidPrivacySetting, http.StatusBadRequest, CodeInvalidPrivacy},

	{model.ErrPostNotFound, http.StatusNotFound, CodePostNotFound},
	{model.ErrNotPostOwner, http.StatusForbidden, CodeNotPostOwner},
	{model.ErrInvalidPostType, http.StatusBadRequest, CodeInvalidPostType},
	{model.ErrOutfitChangeMissing, http.StatusBadRequest, CodeOutfitChangeRequired},
	{model.ErrImageRequired, http.StatusBadRequest, CodeImageRequired},
	{model.ErrDescriptionTooLong, http.StatusBadRequest, CodeDescriptionTooLong},
	{model.ErrCommentNotFound, http.StatusNotFound, CodeCommentNotFound},
	{model.ErrNotCommentOwner, http.StatusForbidden, CodeNotCommentOwner},
	{model.ErrContentRequired, http.StatusBadRequest, CodeContentRequired},
	{model.ErrContentTooLong, http.StatusBadRequest, CodeContentTooLong},
	{model.ErrInvalidScore, http.StatusBadRequest, CodeInvalidScore},
	{model.ErrInvalidCursor, http.StatusBadRequest, CodeInvalidCursor},

	{model.ErrHistoryNotFound, http.StatusNotFound, CodeHistoryNotFound},
	{model.ErrImageURIRequired, http.StatusBadRequest, CodeImageURIRequired},
	{model.ErrTokenRequired, http.StatusBadRequest, CodeTokenRequired},

	{model.ErrFileTooLarge, http.StatusRequestEntityTooLarge, model.CodeFileTooLarge},
	{model.ErrInvalidImageType, http.StatusBadRequest, model.CodeInvalidImageType},
	{model.ErrMediaNotAvailable, http.StatusServiceUnavailable, CodeMediaUnavailable},
}

// WriteServiceError maps a service error to its status and code. Anything
// unknown is logged and reported as a 500 with the fallback message.
func WriteServiceError(w http.ResponseWriter, op string, err error, fallback string) {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			WriteError(w, d.status, d.code, d.err.Error())
			return
		}
	}
	log.Printf("[ERROR] %s: %v", op, err)
	WriteInternalError(w, fallback)
}
