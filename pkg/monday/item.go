package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// GetProjectByID implements Client.
func (c *apiClient) GetProjectByID(ctx context.Context, projectID string) (*Item, error) {
	query := `
	query ($itemId: ID!) {
	  items(ids: [$itemId]) {
	    id
	    name
	    column_values {
	      id
	      text
	      __typename
	      ... on MirrorValue { display_value }
	    }
	    subitems {
	      id
	      name
	      column_values {
	        id
	        text
	        __typename
	        ... on MirrorValue { display_value }
	      }
	    }
	  }
	}`

	var data struct {
		Items []Item `json:"items"`
	}
	if err := c.execute(ctx, query, map[string]any{"itemId": projectID}, &data); err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, eris.Errorf("monday: project %s not found", projectID)
	}
	return &data.Items[0], nil
}

// CreateItem implements Client. The item is created first; a file upload
// failure is reported via the result flag rather than failing the call,
// since the item already exists on the board at that point.
func (c *apiClient) CreateItem(ctx context.Context, req ItemRequest) (*CreateResult, error) {
	boardID := req.BoardID
	if boardID == "" {
		boardID = c.cfg.BoardID
	}
	groupID := req.GroupID
	if groupID == "" {
		groupID = c.cfg.GroupID
	}

	columnValues, err := json.Marshal(req.ColumnValues)
	if err != nil {
		return nil, eris.Wrap(err, "monday: marshal column values")
	}

	mutation := `
	mutation ($boardId: ID!, $groupId: String!, $itemName: String!, $columnValues: JSON!) {
	  create_item(board_id: $boardId, group_id: $groupId, item_name: $itemName, column_values: $columnValues) {
	    id
	  }
	}`

	var data struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	err = c.execute(ctx, mutation, map[string]any{
		"boardId":      boardID,
		"groupId":      groupID,
		"itemName":     req.Name,
		"columnValues": string(columnValues),
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.CreateItem.ID == "" {
		return nil, eris.New("monday: create_item returned no id")
	}

	result := &CreateResult{ItemID: data.CreateItem.ID}

	if len(req.File) > 0 && req.FileColumnID != "" {
		if err := c.addFileToColumn(ctx, result.ItemID, req.FileColumnID, req.FileName, req.File); err != nil {
			zap.L().Warn("file upload failed after item creation",
				zap.String("item_id", result.ItemID),
				zap.String("file", req.FileName),
				zap.Error(err),
			)
		} else {
			result.FileUploaded = true
		}
	}

	return result, nil
}

// addFileToColumn uploads a file to a file column via the dedicated
// multipart endpoint.
func (c *apiClient) addFileToColumn(ctx context.Context, itemID, columnID, filename string, data []byte) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "monday: rate limit")
		}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mutation := fmt.Sprintf(
		`mutation ($file: File!) { add_file_to_column(item_id: %s, column_id: %q, file: $file) { id } }`,
		itemID, columnID,
	)
	if err := w.WriteField("query", mutation); err != nil {
		return eris.Wrap(err, "monday: write query field")
	}

	part, err := w.CreateFormFile("variables[file]", filename)
	if err != nil {
		return eris.Wrap(err, "monday: create file part")
	}
	if _, err := part.Write(data); err != nil {
		return eris.Wrap(err, "monday: write file part")
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "monday: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fileURL, &buf)
	if err != nil {
		return eris.Wrap(err, "monday: build file request")
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "monday: upload file")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("monday: file upload status %d: %s", resp.StatusCode, truncate(raw, 512))
	}

	var envelope struct {
		Errors []gqlError `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return eris.Wrap(err, "monday: decode file response")
	}
	if len(envelope.Errors) > 0 {
		return eris.Errorf("monday: file upload error: %s", envelope.Errors[0].Message)
	}
	return nil
}
