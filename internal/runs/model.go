package runs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for Run.Date.
const DateLayout = "2006-01-02"

var ErrUnknownCategory = errors.New("unknown category")

// Category is a coarse failure classification.
type Category string

const (
	CategoryUnknown  Category = "unknown"
	CategoryBug      Category = "bug"
	CategoryUIChange Category = "ui-change"
	CategoryFlaky    Category = "flaky"
)

var categories = []Category{CategoryUnknown, CategoryBug, CategoryUIChange, CategoryFlaky}

// Categories returns the closed category set in canonical order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory accepts either separator convention (ui_change, ui-change,
// "UI Change") and returns the canonical category.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	for _, c := range categories {
		if string(c) == norm {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

type Branch string

const (
	BranchDevA    Branch = "devA"
	BranchDevB    Branch = "devB"
	BranchDevC    Branch = "devC"
	BranchStaging Branch = "staging"
	BranchProd    Branch = "prod"
)

var branches = []Branch{BranchDevA, BranchDevB, BranchDevC, BranchStaging, BranchProd}

type Author string

var authors = []Author{"john.doe", "jane.smith", "mike.wilson", "sarah.jones", "amy.lee", "bob.kim"}

type ErrorMessage string

const (
	ErrorElementTimeout ErrorMessage = "Timeout waiting for element"
	ErrorAssertion      ErrorMessage = "Assertion failed"
	ErrorNetworkTimeout ErrorMessage = "Network timeout"
	ErrorDatabase       ErrorMessage = "Database error"
	ErrorUnknown        ErrorMessage = "Unknown error occurred"
	ErrorLayoutChanged  ErrorMessage = "Layout changed"
)

var errorMessages = []ErrorMessage{
	ErrorElementTimeout,
	ErrorAssertion,
	ErrorNetworkTimeout,
	ErrorDatabase,
	ErrorUnknown,
	ErrorLayoutChanged,
}

var testNames = []string{
	"LoginTest.validateCredentials",
	"DashboardTest.renderWidgets",
	"UserProfileTest.updateAvatar",
	"CheckoutTest.processPayment",
	"SearchTest.filterResults",
	"OrdersTest.createOrder",
	"NotificationTest.sendEmail",
	"SettingsTest.savePreferences",
	"BillingTest.applyCoupon",
	"AuthTest.refreshToken",
	"ReportTest.exportCsv",
	"ImportTest.bulkUsers",
	"PaymentTest.refund",
	"ShippingTest.calculateRate",
	"CatalogTest.addProduct",
	"CartTest.updateQuantity",
	"ReviewTest.submit",
	"ProfileTest.changePassword",
	"AnalyticsTest.trackEvent",
	"FeatureFlagTest.toggle",
	"PermissionsTest.roleMatrix",
	"ABTest.variantAllocation",
	"LocalizationTest.translate",
	"AccessibilityTest.focusTrap",
	"FileUploadTest.largeFile",
}

// TestNames returns the canonical test name pool.
func TestNames() []string {
	out := make([]string, len(testNames))
	copy(out, testNames)
	return out
}

// TestCase is one test's outcome within one run.
type TestCase struct {
	TestName   string       `json:"testName" yaml:"testName"`
	Category   Category     `json:"category" yaml:"category"`
	Percentage int          `json:"percentage" yaml:"percentage"`
	Duration   string       `json:"duration" yaml:"duration"`
	Error      ErrorMessage `json:"error" yaml:"error"`
	Author     Author       `json:"author" yaml:"author"`
	RetryCount string       `json:"retryCount" yaml:"retryCount"`
}

// RetriesUsed parses the "<used>/3" retry counter. Malformed values count as 0.
func (tc TestCase) RetriesUsed() int {
	used, _, ok := strings.Cut(tc.RetryCount, "/")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(used)
	if err != nil {
		return 0
	}
	return n
}

// Run is one execution batch of the suite.
type Run struct {
	TestRunID string     `json:"testRunId" yaml:"testRunId"`
	Date      string     `json:"date" yaml:"date"`
	Branch    Branch     `json:"branch" yaml:"branch"`
	TestCases []TestCase `json:"testCases" yaml:"testCases"`
}

func (r Run) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

