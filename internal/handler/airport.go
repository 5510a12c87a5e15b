package handler

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"FareWatch/internal/model"
	"FareWatch/internal/model/dto"
	"FareWatch/pkg/amadeus"
	"FareWatch/pkg/errors"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/response"
)

const minAirportKeywordLength = 2

// SearchAirports 按关键字搜索机场和城市，供应商失败时返回 502
func SearchAirports(ctx context.Context, c *app.RequestContext) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if utf8.RuneCountInString(keyword) < minAirportKeywordLength {
		response.Error(ctx, c, errors.Definition{
			Code:    errors.InvalidRequest.Code,
			Message: "keyword must have at least 2 characters",
		})
		return
	}

	if !amadeus.Ready() {
		response.Error(ctx, c, errors.ProviderUnavailable)
		return
	}

	airports, err := amadeus.GetClient().SearchAirports(ctx, keyword)
	if err != nil {
		logger.Logger.Warn("Airport search failed",
			zap.String("keyword", keyword),
			zap.Error(err),
		)
		response.Error(ctx, c, errors.ProviderUnavailable)
		return
	}
	if airports == nil {
		airports = []model.Airport{}
	}

	response.Success(ctx, c, dto.AirportSearchResponse{Keyword: keyword, Airports: airports})
}
