package crm

import (
	"strconv"

	"utmlens/internal/metrics"
)

// Properties are HubSpot contact property values, always strings.
type Properties map[string]string

const (
	PropFirstTouchSource   = "utm_first_touch_source"
	PropFirstTouchChannel  = "utm_first_touch_channel"
	PropFirstTouchCampaign = "utm_first_touch_campaign"
	PropFirstTouchDate     = "utm_first_touch_date"
	PropLastTouchSource    = "utm_last_touch_source"
	PropLastTouchChannel   = "utm_last_touch_channel"
	PropLastTouchCampaign  = "utm_last_touch_campaign"
	PropLastTouchDate      = "utm_last_touch_date"
	PropTouchpointCount    = "utm_touchpoint_count"
	PropAttributedRevenue  = "utm_attributed_revenue"
	PropAttributedCAC      = "utm_attributed_cac"
)

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// BuildProperties maps a contact summary onto HubSpot properties. Touch
// properties are omitted for contacts without touchpoints.
func BuildProperties(s *metrics.ContactSummary) Properties {
	props := Properties{
		PropTouchpointCount:   strconv.Itoa(s.TouchpointCount),
		PropAttributedRevenue: money(s.AttributedRevenue),
		PropAttributedCAC:     money(s.CAC),
	}
	if t := s.FirstTouch; t != nil {
		props[PropFirstTouchSource] = t.Source
		props[PropFirstTouchChannel] = t.Channel
		props[PropFirstTouchCampaign] = t.Campaign
		props[PropFirstTouchDate] = t.Timestamp.UTC().Format("2006-01-02")
	}
	if t := s.LastTouch; t != nil {
		props[PropLastTouchSource] = t.Source
		props[PropLastTouchChannel] = t.Channel
		props[PropLastTouchCampaign] = t.Campaign
		props[PropLastTouchDate] = t.Timestamp.UTC().Format("2006-01-02")
	}
	return props
}
