package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/drcartoon/cartoonbox/internal/catalog"
)

// searchCatalog proxies a filtered search against the public archive
func (api *API) searchCatalog(c *gin.Context) {
	filters := catalog.SearchFilters{
		Query: c.Query("q"),
		Genre: c.Query("genre"),
	}
	if rawYear := c.Query("year"); rawYear != "" {
		year, err := strconv.Atoi(rawYear)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
			return
		}
		filters.Year = year
	}

	items, err := api.catalog.Search(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"genres": catalog.GenreCounts(items),
	})
}

// catalogDetail returns a single title with its episodes grouped by season
func (api *API) catalogDetail(c *gin.Context) {
	videoID := c.Param("id")

	detail, err := api.catalog.Detail(c.Request.Context(), videoID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Catalog unavailable"})
		return
	}

	c.JSON(http.StatusOK, detail)
}
