package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keyrelay/keyrelay/internal/models"
	"github.com/keyrelay/keyrelay/internal/store"
	log "github.com/sirupsen/logrus"
)

// KeymapHandler manages the admin CRUD surface for key mappings.
type KeymapHandler struct {
	store  *store.KeymapStore // Key store access.
	secret string             // Shared admin secret, echoed into redirects and links.
}

// NewKeymapHandler constructs a KeymapHandler.
func NewKeymapHandler(keymaps *store.KeymapStore, secret string) *KeymapHandler {
	return &KeymapHandler{store: keymaps, secret: secret}
}

// ProviderGroup is one provider section inside a folder of the admin listing.
type ProviderGroup struct {
	Name          string              // Provider label.
	FolderName    string              // Owning folder, for the form prefill helper.
	BaseURL       string              // Base URL of the first key in the group.
	PrefillAPIKey string              // API key of the first key, prefilled into the add form.
	Keys          []models.KeyMapping // Key rows in stable order.
}

// FolderGroup is one folder section of the admin listing.
type FolderGroup struct {
	Name      string          // Folder label.
	Providers []ProviderGroup // Provider sections in stable order.
}

// adminPage is the template payload for the grouped listing.
type adminPage struct {
	Secret  string        // Admin secret for form actions.
	Folders []FolderGroup // Grouped key rows.
}

// Index renders the grouped key listing.
func (h *KeymapHandler) Index(c *gin.Context) {
	rows, errList := h.store.ListAll(c.Request.Context())
	if errList != nil {
		log.WithError(errList).Error("admin: list keymaps failed")
		c.String(http.StatusInternalServerError, "list keys failed")
		return
	}
	c.HTML(http.StatusOK, "admin.html", adminPage{
		Secret:  h.secret,
		Folders: groupRows(rows),
	})
}

// groupRows nests ordered rows into folder and provider sections. Rows arrive
// ordered by (group, provider, sku, id), so a simple last-section comparison
// keeps the nesting stable.
func groupRows(rows []models.KeyMapping) []FolderGroup {
	var folders []FolderGroup
	for _, row := range rows {
		folderName := row.GroupName
		if strings.TrimSpace(folderName) == "" {
			folderName = models.DefaultGroupName
		}

		if len(folders) == 0 || folders[len(folders)-1].Name != folderName {
			folders = append(folders, FolderGroup{Name: folderName})
		}
		folder := &folders[len(folders)-1]

		if len(folder.Providers) == 0 || folder.Providers[len(folder.Providers)-1].Name != row.ProviderType {
			folder.Providers = append(folder.Providers, ProviderGroup{
				Name:          row.ProviderType,
				FolderName:    folderName,
				BaseURL:       row.BaseURL,
				PrefillAPIKey: row.APIKey,
			})
		}
		provider := &folder.Providers[len(folder.Providers)-1]
		provider.Keys = append(provider.Keys, row)
	}
	return folders
}

// Save handles the add/update form: upsert keyed on input_key, then redirect
// back to the listing.
func (h *KeymapHandler) Save(c *gin.Context) {
	productIDRaw := strings.TrimSpace(c.PostForm("product_id"))
	productID, errParse := strconv.ParseInt(productIDRaw, 10, 64)
	if productIDRaw == "" || errParse != nil || productID < 0 {
		c.String(http.StatusBadRequest, "missing or invalid fields (sku, input_key, product_id, api_key)")
		return
	}

	_, errUpsert := h.store.Upsert(c.Request.Context(), store.UpsertParams{
		GroupName:    c.PostForm("group_name"),
		SKU:          c.PostForm("sku"),
		InputKey:     c.PostForm("input_key"),
		ProductID:    productID,
		APIKey:       c.PostForm("api_key"),
		ProviderType: c.PostForm("provider_type"),
		BaseURL:      c.PostForm("base_url"),
	})
	if errUpsert != nil {
		c.String(http.StatusBadRequest, "missing or invalid fields (sku, input_key, product_id, api_key)")
		return
	}
	h.redirectToIndex(c)
}

// Toggle flips a key's active flag; absent ids are a 404.
func (h *KeymapHandler) Toggle(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.String(http.StatusNotFound, "not found")
		return
	}
	if errToggle := h.store.Toggle(c.Request.Context(), id); errToggle != nil {
		if errors.Is(errToggle, store.ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		log.WithError(errToggle).Error("admin: toggle keymap failed")
		c.String(http.StatusInternalServerError, "toggle failed")
		return
	}
	h.redirectToIndex(c)
}

// Delete removes a key without checking existence first.
func (h *KeymapHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.String(http.StatusNotFound, "not found")
		return
	}
	if errDelete := h.store.Delete(c.Request.Context(), id); errDelete != nil {
		log.WithError(errDelete).Error("admin: delete keymap failed")
		c.String(http.StatusInternalServerError, "delete failed")
		return
	}
	h.redirectToIndex(c)
}

// redirectToIndex sends the operator back to the grouped listing.
func (h *KeymapHandler) redirectToIndex(c *gin.Context) {
	c.Redirect(http.StatusFound, "/admin?admin_secret="+url.QueryEscape(h.secret))
}
