package services

import (
	"sort"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

// CountryNone treats Monday to Friday as workdays with no public holidays.
const CountryNone = "NONE"

// HolidayService decides whether the completion digest runs on a given day.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{
		calendars: make(map[string]*cal.BusinessCalendar),
	}
	s.calendars["US"] = newBusinessCalendar("United States", us.Holidays...)
	s.calendars["GB"] = newBusinessCalendar("United Kingdom", gb.Holidays...)
	s.calendars["IE"] = newBusinessCalendar("Ireland", ie.Holidays...)
	s.calendars["DE"] = newBusinessCalendar("Germany", de.Holidays...)
	s.calendars["FR"] = newBusinessCalendar("France", fr.Holidays...)
	s.calendars["NL"] = newBusinessCalendar("Netherlands", nl.Holidays...)
	s.calendars["JP"] = newBusinessCalendar("Japan", jp.Holidays...)
	s.calendars["AU"] = newBusinessCalendar("Australia", au.HolidaysNSW...)
	s.calendars["NZ"] = newBusinessCalendar("New Zealand", nz.Holidays...)
	s.calendars["CA"] = newBusinessCalendar("Canada", ca.Holidays...)
	return s
}

func newBusinessCalendar(name string, holidays ...*cal.Holiday) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.Name = name
	c.AddHoliday(holidays...)
	return c
}

// IsWorkday falls back to plain weekdays for NONE and unknown codes. CN uses
// the lunar-go holiday table, which also knows the swapped working weekends.
func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	switch countryCode {
	case "CN":
		return isWorkdayChina(t)
	case CountryNone, "":
		return !cal.IsWeekend(t)
	}

	c, ok := s.calendars[countryCode]
	if !ok {
		return !cal.IsWeekend(t)
	}
	return c.IsWorkday(t)
}

func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay())
	if holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

func (s *HolidayService) Supports(countryCode string) bool {
	if countryCode == "CN" || countryCode == CountryNone {
		return true
	}
	_, ok := s.calendars[countryCode]
	return ok
}

// Countries lists the supported codes, sorted.
func (s *HolidayService) Countries() []string {
	codes := []string{"CN", CountryNone}
	for code := range s.calendars {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
