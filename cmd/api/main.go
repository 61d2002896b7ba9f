package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/libraryops/internal/api"
	"github.com/punchamoorthee/libraryops/internal/config"
	"github.com/punchamoorthee/libraryops/internal/service"
	"github.com/punchamoorthee/libraryops/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	libraryStore, err := store.NewStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer libraryStore.Close()

	circulation := service.NewCirculationService(libraryStore.Db, cfg.Circulation)
	handler := api.NewHandler(libraryStore, circulation)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()

	// Catalog
	apiRouter.HandleFunc("/books", handler.CreateBookHandler).Methods("POST")
	apiRouter.HandleFunc("/books", handler.ListBooksHandler).Methods("GET")
	apiRouter.HandleFunc("/books/{id}", handler.GetBookHandler).Methods("GET")
	apiRouter.HandleFunc("/books/{id}", handler.UpdateBookHandler).Methods("PUT")
	apiRouter.HandleFunc("/books/{id}", handler.DeleteBookHandler).Methods("DELETE")

	// Membership
	apiRouter.HandleFunc("/members", handler.CreateMemberHandler).Methods("POST")
	apiRouter.HandleFunc("/members", handler.ListMembersHandler).Methods("GET")
	apiRouter.HandleFunc("/members/{id}", handler.GetMemberHandler).Methods("GET")
	apiRouter.HandleFunc("/members/{id}", handler.UpdateMemberHandler).Methods("PUT")
	apiRouter.HandleFunc("/members/{id}", handler.DeleteMemberHandler).Methods("DELETE")
	apiRouter.HandleFunc("/members/{memberId}/loans", handler.GetMemberLoansHandler).Methods("GET")
	apiRouter.HandleFunc("/loans/{id}", handler.DeleteLoanHandler).Methods("DELETE")

	// Circulation desk
	circ := apiRouter.PathPrefix("/circulation").Subrouter()
	circ.HandleFunc("/borrow", handler.BorrowBookHandler).Methods("POST")
	circ.HandleFunc("/return/{loanId}", handler.ReturnBookHandler).Methods("PUT")
	circ.HandleFunc("/renew/{loanId}", handler.RenewLoanHandler).Methods("PUT")
	circ.HandleFunc("/reservations", handler.CreateReservationHandler).Methods("POST")
	circ.HandleFunc("/reservations", handler.GetReservationsHandler).Methods("GET")
	circ.HandleFunc("/reservations/{reservationId}", handler.CancelReservationHandler).Methods("DELETE")
	circ.HandleFunc("/fines/member/{memberId}", handler.GetMemberFinesHandler).Methods("GET")
	circ.HandleFunc("/fines/{fineId}/pay", handler.PayFineHandler).Methods("PUT")
	circ.HandleFunc("/fines/{fineId}/waive", handler.WaiveFineHandler).Methods("PUT")
	circ.HandleFunc("/member/{memberId}", handler.GetMemberCirculationHandler).Methods("GET")
	circ.HandleFunc("/book/{bookId}", handler.GetBookCirculationHandler).Methods("GET")
	circ.HandleFunc("/overdue", handler.GetOverdueBooksHandler).Methods("GET")
	circ.HandleFunc("", handler.GetAllCirculationHandler).Methods("GET")

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
