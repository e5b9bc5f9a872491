package models

import "errors"

var ErrInvalidJiraRecord = errors.New("jira update record cannot be saved")
